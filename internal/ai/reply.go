package ai

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"onebox/backend/internal/domain"
)

// Rand 随机源，测试中可注入固定实现
type Rand interface {
	Intn(n int) int
}

type globalRand struct{}

func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

// DefaultSignature 默认署名
const DefaultSignature = "[Your Name]"

// Bucket 回复模板的主题分组，只用于回复建议
type Bucket string

const (
	BucketMeeting Bucket = "meeting"
	BucketOrder   Bucket = "order"
	BucketUpdate  Bucket = "update"
	BucketGeneral Bucket = "general"
)

var templates = map[Bucket][]string{
	BucketMeeting: {
		"Thanks for the meeting invite. I've added it to my calendar and look forward to our discussion.",
		"I confirm that I'll attend the meeting. Looking forward to it.",
		"The meeting time works for me. I'll be there.",
	},
	BucketOrder: {
		"Thank you for the order confirmation. I appreciate the update.",
		"Thanks for letting me know about my order status.",
		"Appreciate the order details. Looking forward to receiving it.",
	},
	BucketUpdate: {
		"Thanks for sending the update. I'll review it and provide feedback soon.",
		"I've received your update and will take a look at it shortly.",
		"Appreciate you sharing this update. I'll go through it carefully.",
	},
	BucketGeneral: {
		"Thank you for your email. I'll look into this and respond soon.",
		"I've received your message and will get back to you shortly.",
		"Thanks for reaching out. I'll consider your message and reply when I can.",
	},
}

// fillerPattern 简洁风格只去掉最左侧的一处填充语
var fillerPattern = regexp.MustCompile(`I'll |I've |I |Looking forward to |Appreciate `)

// ReplySuggester 模板回复生成器
type ReplySuggester struct {
	rnd       Rand
	signature string
}

// NewReplySuggester 创建回复生成器，rnd 为 nil 时使用全局随机源
func NewReplySuggester(rnd Rand, signature string) *ReplySuggester {
	if rnd == nil {
		rnd = globalRand{}
	}
	if signature == "" {
		signature = DefaultSignature
	}
	return &ReplySuggester{rnd: rnd, signature: signature}
}

// BucketOf 按 meeting、order、update 的顺序匹配，都不命中时为 general
func BucketOf(email *domain.Email) Bucket {
	subject := strings.ToLower(email.Subject)
	body := strings.ToLower(email.Body.Text)

	switch {
	case strings.Contains(subject, "meeting") || strings.Contains(body, "meeting"):
		return BucketMeeting
	case strings.Contains(subject, "order") || strings.Contains(email.From.Email, "amazon"):
		return BucketOrder
	case strings.Contains(subject, "update") || strings.Contains(body, "update"):
		return BucketUpdate
	default:
		return BucketGeneral
	}
}

// Templates 返回分组下的候选回复
func Templates(bucket Bucket) []string {
	return append([]string(nil), templates[bucket]...)
}

// Suggest 生成建议回复。未知风格原样返回模板句子。
func (s *ReplySuggester) Suggest(email *domain.Email, style domain.ReplyStyle) string {
	candidates := templates[BucketOf(email)]
	reply := candidates[s.rnd.Intn(len(candidates))]
	return s.applyStyle(reply, email.From.Name, style)
}

func (s *ReplySuggester) applyStyle(reply, senderName string, style domain.ReplyStyle) string {
	switch style {
	case domain.ReplyStyleFriendly:
		return fmt.Sprintf("Hi %s, \n\n%s 😊\n\nBest,\n%s", firstName(senderName), reply, s.signature)
	case domain.ReplyStyleProfessional:
		return fmt.Sprintf("Dear %s, \n\n%s\n\nBest regards,\n%s", senderName, reply, s.signature)
	case domain.ReplyStyleConcise:
		if loc := fillerPattern.FindStringIndex(reply); loc != nil {
			reply = reply[:loc[0]] + reply[loc[1]:]
		}
		return fmt.Sprintf("%s\n\nRegards,\n%s", reply, s.signature)
	default:
		return reply
	}
}

func firstName(name string) string {
	first, _, _ := strings.Cut(name, " ")
	return first
}
