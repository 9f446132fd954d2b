package domain

import (
	"strings"
	"time"
)

// Category 邮件分类，封闭枚举
type Category string

const (
	CategoryInterested Category = "interested"
	CategorySpam       Category = "spam"
	CategoryImportant  Category = "important"
	CategoryNeutral    Category = "neutral"
)

// ParseCategory 解析分类名称，大小写不敏感
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryInterested, CategorySpam, CategoryImportant, CategoryNeutral:
		return c, true
	}
	return "", false
}

// Address 收发件人
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Body 邮件正文
type Body struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

// Attachment 附件元数据，内容本身不入库
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Email 表示一封邮件记录。
//
// ID 创建后不可变；IsRead/IsStarred/IsDeleted 只能通过存储层操作修改；
// Category 与 SuggestedReply 在计算前为空。
type Email struct {
	ID             string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Account        string       `json:"account" gorm:"type:varchar(64);index;not null"`
	From           Address      `json:"from" gorm:"embedded;embeddedPrefix:from_"`
	To             []Address    `json:"to" gorm:"serializer:json"`
	Subject        string       `json:"subject" gorm:"type:varchar(998)"`
	Body           Body         `json:"body" gorm:"embedded;embeddedPrefix:body_"`
	Date           time.Time    `json:"date" gorm:"index"`
	IsRead         bool         `json:"isRead" gorm:"default:false;index"`
	IsStarred      bool         `json:"isStarred" gorm:"default:false"`
	IsDeleted      bool         `json:"isDeleted" gorm:"default:false;index"`
	Labels         []string     `json:"labels" gorm:"serializer:json"`
	Attachments    []Attachment `json:"attachments" gorm:"serializer:json"`
	Category       Category     `json:"category,omitempty" gorm:"type:varchar(16)"`
	SuggestedReply string       `json:"suggestedReply,omitempty" gorm:"type:text"`
	// Seq 记录写入顺序，存储层用它保证稳定的追加顺序
	Seq int64 `json:"-" gorm:"autoIncrement:false;index"`
}

// HasAttachments 是否带附件
func (e *Email) HasAttachments() bool {
	return len(e.Attachments) > 0
}

// HasLabel 标签是否存在（精确匹配）
func (e *Email) HasLabel(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Clone 深拷贝，存储层对外只返回副本
func (e *Email) Clone() *Email {
	if e == nil {
		return nil
	}
	cp := *e
	if e.To != nil {
		cp.To = append([]Address(nil), e.To...)
	}
	if e.Labels != nil {
		cp.Labels = append([]string(nil), e.Labels...)
	}
	if e.Attachments != nil {
		cp.Attachments = append([]Attachment(nil), e.Attachments...)
	}
	return &cp
}

// ListOptions 列表分页参数，Limit 为 0 表示不分页
type ListOptions struct {
	Account        string
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// SendEmailInput 发送邮件请求
type SendEmailInput struct {
	Account     string               `json:"account"`
	From        string               `json:"from"`
	To          []string             `json:"to"`
	Subject     string               `json:"subject"`
	Body        string               `json:"body"`
	Attachments []OutgoingAttachment `json:"attachments"`
}

// OutgoingAttachment 待发送附件，Content 在 JSON 中为 base64
type OutgoingAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

// Meta 转换为入库的附件元数据
func (a OutgoingAttachment) Meta() Attachment {
	return Attachment{
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        int64(len(a.Content)),
	}
}
