package service

import (
	"errors"

	"onebox/backend/internal/domain"
)

var (
	// ErrInvalidRecipient 收件人地址非法
	ErrInvalidRecipient = domain.ErrInvalidRecipient
	// ErrAIDisabled AI 功能已关闭
	ErrAIDisabled = errors.New("ai features disabled")
	// ErrCategoriesDisabled 自动分类已关闭
	ErrCategoriesDisabled = errors.New("auto categorization disabled")
	// ErrRepliesDisabled 回复建议已关闭
	ErrRepliesDisabled = errors.New("suggested replies disabled")
	// ErrSendFailed 外发失败
	ErrSendFailed = errors.New("failed to send email")
)
