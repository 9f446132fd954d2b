package query

import (
	"strings"
	"time"
	"unicode"

	"onebox/backend/internal/domain"
)

const dateLayout = "2006-01-02"

// Parse 解析搜索栏输入。
//
// 支持的操作符：from: subject: label: category: account: is:read|unread|starred|unstarred
// has:attachment after:YYYY-MM-DD before:YYYY-MM-DD。值可用双引号包裹。
// 无法识别的词元原样留在关键词里。
func Parse(input string) domain.SearchQuery {
	f := &domain.SearchFilters{}
	var words []string

	for _, tok := range tokenize(input) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || value == "" {
			words = append(words, tok)
			continue
		}
		value = strings.Trim(value, `"`)

		switch strings.ToLower(key) {
		case "from":
			f.Sender = value
		case "subject":
			f.Subject = value
		case "label":
			f.Labels = append(f.Labels, value)
		case "account":
			f.Accounts = append(f.Accounts, value)
		case "category":
			c, ok := domain.ParseCategory(value)
			if !ok {
				words = append(words, tok)
				continue
			}
			f.Categories = append(f.Categories, c)
		case "is":
			if !applyState(f, strings.ToLower(value)) {
				words = append(words, tok)
			}
		case "has":
			if strings.HasPrefix(strings.ToLower(value), "attachment") {
				f.HasAttachments = domain.Bool(true)
			} else {
				words = append(words, tok)
			}
		case "after", "before":
			d, err := time.ParseInLocation(dateLayout, value, time.UTC)
			if err != nil {
				words = append(words, tok)
				continue
			}
			if strings.EqualFold(key, "after") {
				f.DateFrom = &d
			} else {
				end := d.Add(24*time.Hour - time.Nanosecond)
				f.DateTo = &end
			}
		default:
			words = append(words, tok)
		}
	}

	q := domain.SearchQuery{Query: strings.Join(words, " ")}
	if !(domain.SearchQuery{Filters: f}).IsEmpty() {
		q.Filters = f
	}
	return q
}

func applyState(f *domain.SearchFilters, state string) bool {
	switch state {
	case "read":
		f.IsRead = domain.Bool(true)
	case "unread":
		f.IsRead = domain.Bool(false)
	case "starred":
		f.IsStarred = domain.Bool(true)
	case "unstarred":
		f.IsStarred = domain.Bool(false)
	default:
		return false
	}
	return true
}

// tokenize 按空白切分，双引号内的空白不切分
func tokenize(input string) []string {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range input {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case unicode.IsSpace(r) && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
