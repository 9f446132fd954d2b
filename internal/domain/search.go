package domain

import "time"

// SearchFilters 结构化过滤条件，nil 或空切片都表示不限制
type SearchFilters struct {
	Accounts       []string   `json:"accounts,omitempty"`
	Labels         []string   `json:"labels,omitempty"`
	Categories     []Category `json:"categories,omitempty"`
	IsRead         *bool      `json:"isRead,omitempty"`
	IsStarred      *bool      `json:"isStarred,omitempty"`
	HasAttachments *bool      `json:"hasAttachments,omitempty"`
	DateFrom       *time.Time `json:"from,omitempty"`
	DateTo         *time.Time `json:"to,omitempty"`
	Sender         string     `json:"sender,omitempty"`  // 发件人筛选（名称或地址）
	Subject        string     `json:"subject,omitempty"` // 主题筛选
	IncludeDeleted bool       `json:"includeDeleted,omitempty"`
}

// SearchQuery 搜索请求，每次搜索新建
type SearchQuery struct {
	Query   string         `json:"query"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// IsEmpty 没有关键词也没有任何过滤条件
func (q SearchQuery) IsEmpty() bool {
	if q.Query != "" {
		return false
	}
	f := q.Filters
	if f == nil {
		return true
	}
	return len(f.Accounts) == 0 && len(f.Labels) == 0 && len(f.Categories) == 0 &&
		f.IsRead == nil && f.IsStarred == nil && (f.HasAttachments == nil || !*f.HasAttachments) &&
		f.DateFrom == nil && f.DateTo == nil && f.Sender == "" && f.Subject == ""
}

// Bool 返回布尔指针，便于构造过滤条件
func Bool(v bool) *bool {
	return &v
}
