package query

import "strings"

var suggestions = []string{
	"from:john",
	"subject:meeting",
	"has:attachment",
	"label:work",
	"category:important",
	"is:unread",
	"is:starred",
}

// Suggestions 返回包含输入片段的搜索建议（大小写不敏感）
func Suggestions(partial string) []string {
	needle := strings.ToLower(partial)
	out := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		if strings.Contains(strings.ToLower(s), needle) {
			out = append(out, s)
		}
	}
	return out
}
