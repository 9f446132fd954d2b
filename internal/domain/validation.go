package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrEmailTooLong        = errors.New("email address too long")
	ErrLocalPartTooLong    = errors.New("local part too long (max 64 chars)")
	ErrDomainTooLong       = errors.New("domain too long (max 253 chars)")
	ErrInvalidLocalPart    = errors.New("invalid local part format")
	ErrInvalidDomain       = errors.New("invalid domain format")
	ErrNoRecipients        = errors.New("recipients are required")
	ErrInvalidRecipient    = errors.New("invalid recipient email")
	ErrSubjectInvalid      = errors.New("subject too long or contains control characters")
	ErrBodyTooLarge        = errors.New("message body too large")
	ErrInvalidIMAPPort     = errors.New("imap port out of range")
	ErrInvalidReplyStyle   = errors.New("invalid reply style")
	ErrThresholdOutOfRange = errors.New("category threshold must be between 0 and 100")
)

// 验证常量
const (
	// RFC 5322 邮箱地址长度限制
	MaxEmailLength     = 254
	MaxLocalPartLength = 64
	MaxDomainLength    = 253

	MaxSubjectLength = 998
	MaxBodyLength    = 1 << 20
)

var (
	localPartRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._+-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

	// 域名验证（支持子域名）
	domainRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,61}[a-zA-Z0-9]?(\.[a-zA-Z0-9][a-zA-Z0-9-]{0,61}[a-zA-Z0-9]?)*$`)
)

// EmailValidator 邮箱验证器
type EmailValidator struct{}

// NewEmailValidator 创建邮箱验证器
func NewEmailValidator() *EmailValidator {
	return &EmailValidator{}
}

// ValidateEmail 完整验证邮箱地址
func (v *EmailValidator) ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if len(email) > MaxEmailLength {
		return ErrEmailTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ErrInvalidEmail
	}

	if err := v.ValidateLocalPart(parts[0]); err != nil {
		return err
	}
	return v.ValidateDomain(parts[1])
}

// ValidateLocalPart 验证邮箱本地部分
func (v *EmailValidator) ValidateLocalPart(localPart string) error {
	if localPart == "" {
		return ErrInvalidLocalPart
	}
	if len(localPart) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}
	if !localPartRegex.MatchString(localPart) {
		return ErrInvalidLocalPart
	}
	// 不允许连续的点
	if strings.Contains(localPart, "..") {
		return ErrInvalidLocalPart
	}
	return nil
}

// ValidateDomain 验证域名
func (v *EmailValidator) ValidateDomain(domain string) error {
	if domain == "" || !strings.Contains(domain, ".") {
		return ErrInvalidDomain
	}
	if len(domain) > MaxDomainLength {
		return ErrDomainTooLong
	}
	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) > 63 {
			return ErrInvalidDomain
		}
	}
	return nil
}

// ValidateEmail 简化的验证函数，返回 bool
func ValidateEmail(email string) bool {
	return NewEmailValidator().ValidateEmail(email) == nil
}

// ValidateSubject 主题长度与控制字符检查
func ValidateSubject(subject string) bool {
	if len(subject) > MaxSubjectLength {
		return false
	}
	for _, r := range subject {
		if r < 32 {
			return false
		}
	}
	return true
}

// Validate 校验发送请求
func (in *SendEmailInput) Validate() error {
	if len(in.To) == 0 {
		return ErrNoRecipients
	}
	v := NewEmailValidator()
	for _, to := range in.To {
		if err := v.ValidateEmail(to); err != nil {
			return ErrInvalidRecipient
		}
	}
	if in.From != "" {
		if err := v.ValidateEmail(in.From); err != nil {
			return err
		}
	}
	if !ValidateSubject(in.Subject) {
		return ErrSubjectInvalid
	}
	if len(in.Body) > MaxBodyLength {
		return ErrBodyTooLarge
	}
	return nil
}

// Validate 校验添加账户请求
func (in *AddAccountInput) Validate() error {
	if err := NewEmailValidator().ValidateEmail(in.Email); err != nil {
		return err
	}
	if in.IMAPSettings != nil && (in.IMAPSettings.Port < 0 || in.IMAPSettings.Port > 65535) {
		return ErrInvalidIMAPPort
	}
	return nil
}

// Validate 校验 AI 设置
func (s AISettings) Validate() error {
	if s.Categories.Threshold < 0 || s.Categories.Threshold > 100 {
		return ErrThresholdOutOfRange
	}
	if s.SuggestedReplies.Style != "" && !s.SuggestedReplies.Style.Valid() {
		return ErrInvalidReplyStyle
	}
	return nil
}
