package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"onebox/backend/internal/domain"
	"onebox/backend/internal/notify"
	"onebox/backend/internal/security"
	"onebox/backend/internal/service"
	"onebox/backend/internal/storage"
)

// errorMapping 业务错误对应的 HTTP 状态码与中文消息
type errorMapping struct {
	err    error
	status int
	msg    string
}

// 错误映射表，按顺序以 errors.Is 匹配
var errorTable = []errorMapping{
	// 存储
	{storage.ErrEmailNotFound, http.StatusNotFound, "邮件不存在"},
	{storage.ErrAccountNotFound, http.StatusNotFound, "账户不存在"},
	{storage.ErrEmailExists, http.StatusConflict, "邮件已存在"},
	{storage.ErrAccountExists, http.StatusConflict, "该邮箱账户已添加"},

	// 输入校验
	{domain.ErrNoRecipients, http.StatusBadRequest, "收件人不能为空"},
	{domain.ErrInvalidRecipient, http.StatusBadRequest, "收件人地址无效"},
	{domain.ErrInvalidEmail, http.StatusBadRequest, "邮箱地址格式无效"},
	{domain.ErrEmailTooLong, http.StatusBadRequest, "邮箱地址过长"},
	{domain.ErrLocalPartTooLong, http.StatusBadRequest, "邮箱前缀过长"},
	{domain.ErrDomainTooLong, http.StatusBadRequest, "域名过长"},
	{domain.ErrInvalidLocalPart, http.StatusBadRequest, "邮箱前缀格式无效"},
	{domain.ErrInvalidDomain, http.StatusBadRequest, "域名格式无效"},
	{domain.ErrSubjectInvalid, http.StatusBadRequest, "主题过长或包含非法字符"},
	{domain.ErrBodyTooLarge, http.StatusBadRequest, "正文过大"},
	{domain.ErrInvalidIMAPPort, http.StatusBadRequest, "IMAP 端口无效"},
	{domain.ErrInvalidReplyStyle, http.StatusBadRequest, "回复风格无效"},
	{domain.ErrThresholdOutOfRange, http.StatusBadRequest, "分类阈值必须在 0 到 100 之间"},
	{service.ErrInvalidNotificationURL, http.StatusBadRequest, "通知地址必须是 http 或 https URL"},
	{security.ErrAttachmentRejected, http.StatusBadRequest, "附件未通过安全检查"},

	// AI 开关
	{service.ErrAIDisabled, http.StatusUnprocessableEntity, "AI 功能已关闭"},
	{service.ErrCategoriesDisabled, http.StatusUnprocessableEntity, "自动分类已关闭"},
	{service.ErrRepliesDisabled, http.StatusUnprocessableEntity, "回复建议已关闭"},

	// 外部投递
	{service.ErrSendFailed, http.StatusBadGateway, "邮件发送失败"},
	{notify.ErrDeliveryFailed, http.StatusBadGateway, "通知投递失败"},
}

// lookupError 查找错误映射，未命中时返回 false
func lookupError(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m, true
		}
	}
	return errorMapping{}, false
}

// respondError 按映射表输出错误，未知错误统一为 500 并使用 fallback 消息
func respondError(c *gin.Context, err error, fallback string) {
	if m, ok := lookupError(err); ok {
		Error(c, m.status, m.msg)
		return
	}
	_ = c.Error(err)
	InternalError(c, fallback)
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidQuery   = "查询参数无效"

	MsgEmailListFailed    = "获取邮件列表失败"
	MsgEmailGetFailed     = "获取邮件失败"
	MsgEmailUpdateFailed  = "更新邮件状态失败"
	MsgEmailSendFailed    = "发送邮件失败"
	MsgUnreadCountFailed  = "获取未读数失败"
	MsgSearchFailed       = "搜索失败"
	MsgAccountListFailed  = "获取账户列表失败"
	MsgAccountAddFailed   = "添加账户失败"
	MsgCategorizeFailed   = "邮件分类失败"
	MsgReplyFailed        = "生成回复失败"
	MsgSettingsGetFailed  = "获取设置失败"
	MsgSettingsSaveFailed = "保存设置失败"
	MsgNotifyFailed       = "通知派发失败"
	MsgSyncFailed         = "部分账户同步失败"
)
