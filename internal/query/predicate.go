// Package query 实现邮件查询引擎：把 SearchQuery 翻译成可组合的谓词并在邮件序列上执行。
package query

import (
	"strings"
	"time"

	"onebox/backend/internal/domain"
)

// Predicate 邮件谓词
type Predicate func(e *domain.Email) bool

// All 所有谓词同时成立，空列表恒为真
func All(preds ...Predicate) Predicate {
	return func(e *domain.Email) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// Text 关键词匹配主题、正文、发件人名称和地址（大小写不敏感），空关键词恒为真
func Text(text string) Predicate {
	if text == "" {
		return nil
	}
	needle := strings.ToLower(text)
	return func(e *domain.Email) bool {
		return containsFold(e.Subject, needle) ||
			containsFold(e.Body.Text, needle) ||
			containsFold(e.From.Name, needle) ||
			containsFold(e.From.Email, needle)
	}
}

// Accounts 账户白名单
func Accounts(ids []string) Predicate {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(e *domain.Email) bool {
		_, ok := set[e.Account]
		return ok
	}
}

// Labels 标签至少有一个交集
func Labels(labels []string) Predicate {
	if len(labels) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return func(e *domain.Email) bool {
		for _, l := range e.Labels {
			if _, ok := set[l]; ok {
				return true
			}
		}
		return false
	}
}

// Categories 分类白名单，未分类的邮件不匹配
func Categories(categories []domain.Category) Predicate {
	if len(categories) == 0 {
		return nil
	}
	set := make(map[domain.Category]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return func(e *domain.Email) bool {
		if e.Category == "" {
			return false
		}
		_, ok := set[e.Category]
		return ok
	}
}

// ReadState 已读状态相等
func ReadState(isRead *bool) Predicate {
	if isRead == nil {
		return nil
	}
	want := *isRead
	return func(e *domain.Email) bool {
		return e.IsRead == want
	}
}

// Starred 星标状态相等
func Starred(isStarred *bool) Predicate {
	if isStarred == nil {
		return nil
	}
	want := *isStarred
	return func(e *domain.Email) bool {
		return e.IsStarred == want
	}
}

// WithAttachments 只有显式要求附件时才生效，false 不做限制
func WithAttachments(has *bool) Predicate {
	if has == nil || !*has {
		return nil
	}
	return func(e *domain.Email) bool {
		return e.HasAttachments()
	}
}

// DateRange 日期区间，两端闭合
func DateRange(from, to *time.Time) Predicate {
	if from == nil && to == nil {
		return nil
	}
	return func(e *domain.Email) bool {
		if from != nil && e.Date.Before(*from) {
			return false
		}
		if to != nil && e.Date.After(*to) {
			return false
		}
		return true
	}
}

// Sender 发件人名称或地址包含子串
func Sender(sender string) Predicate {
	if sender == "" {
		return nil
	}
	needle := strings.ToLower(sender)
	return func(e *domain.Email) bool {
		return containsFold(e.From.Name, needle) || containsFold(e.From.Email, needle)
	}
}

// Subject 主题包含子串
func Subject(subject string) Predicate {
	if subject == "" {
		return nil
	}
	needle := strings.ToLower(subject)
	return func(e *domain.Email) bool {
		return containsFold(e.Subject, needle)
	}
}

// NotDeleted 排除软删除的邮件
func NotDeleted(e *domain.Email) bool {
	return !e.IsDeleted
}

// Build 把查询翻译为谓词。
// 各条件为合取关系，未设置或为空的条件不参与，因此空查询得到恒真谓词。
func Build(q domain.SearchQuery) Predicate {
	preds := make([]Predicate, 0, 10)
	add := func(p Predicate) {
		if p != nil {
			preds = append(preds, p)
		}
	}

	add(Text(q.Query))
	if f := q.Filters; f != nil {
		add(Accounts(f.Accounts))
		add(Labels(f.Labels))
		add(Categories(f.Categories))
		add(ReadState(f.IsRead))
		add(Starred(f.IsStarred))
		add(WithAttachments(f.HasAttachments))
		add(DateRange(f.DateFrom, f.DateTo))
		add(Sender(f.Sender))
		add(Subject(f.Subject))
	}

	if len(preds) == 1 {
		return preds[0]
	}
	return All(preds...)
}
