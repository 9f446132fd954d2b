package query

import "onebox/backend/internal/domain"

// Filter 返回满足谓词的邮件，保持输入顺序
func Filter(emails []*domain.Email, pred Predicate) []*domain.Email {
	out := make([]*domain.Email, 0, len(emails))
	for _, e := range emails {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}

// Execute 执行查询。空查询原样返回输入序列。
func Execute(q domain.SearchQuery, emails []*domain.Email) []*domain.Email {
	if q.IsEmpty() {
		return emails
	}
	return Filter(emails, Build(q))
}

// Page 对结果做偏移和截断，limit <= 0 表示不截断
func Page(emails []*domain.Email, offset, limit int) []*domain.Email {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(emails) {
		return []*domain.Email{}
	}
	end := len(emails)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return emails[offset:end]
}
