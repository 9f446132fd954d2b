package service

import (
	"onebox/backend/internal/domain"
	"onebox/backend/internal/monitoring"
	"onebox/backend/internal/query"
	"onebox/backend/internal/storage"
)

// SearchService 搜索服务
type SearchService struct {
	emails  storage.EmailRepository
	metrics *monitoring.Metrics
}

// NewSearchService 创建搜索服务
func NewSearchService(emails storage.EmailRepository, metrics *monitoring.Metrics) *SearchService {
	return &SearchService{emails: emails, metrics: metrics}
}

// Search 执行结构化搜索，结果保持日期倒序
func (s *SearchService) Search(q domain.SearchQuery) ([]*domain.Email, error) {
	results, err := s.emails.SearchEmails(q)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSearch("structured", len(results))
	return results, nil
}

// SearchText 解析搜索栏语法后搜索
func (s *SearchService) SearchText(input string, includeDeleted bool) ([]*domain.Email, domain.SearchQuery, error) {
	q := query.Parse(input)
	if includeDeleted {
		if q.Filters == nil {
			q.Filters = &domain.SearchFilters{}
		}
		q.Filters.IncludeDeleted = true
	}

	results, err := s.emails.SearchEmails(q)
	if err != nil {
		return nil, q, err
	}
	s.metrics.RecordSearch("text", len(results))
	return results, q, nil
}

// Suggestions 返回搜索建议
func (s *SearchService) Suggestions(partial string) []string {
	return query.Suggestions(partial)
}
