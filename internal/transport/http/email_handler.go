package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"onebox/backend/internal/domain"
)

// emailListResponse 邮件列表响应
type emailListResponse struct {
	Items []*domain.Email `json:"items"`
	Count int             `json:"count"`
}

// parseListOptions 解析分页与过滤参数
func parseListOptions(c *gin.Context) (domain.ListOptions, bool) {
	opts := domain.ListOptions{Account: c.Query("account")}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, false
		}
		opts.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, false
		}
		opts.Offset = n
	}
	if v := c.Query("includeDeleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, false
		}
		opts.IncludeDeleted = b
	}
	return opts, true
}

func emailList(items []*domain.Email) emailListResponse {
	if items == nil {
		items = []*domain.Email{}
	}
	return emailListResponse{Items: items, Count: len(items)}
}

// listEmails godoc
// @Summary 邮件列表
// @Description 按日期倒序返回邮件，默认不含已删除邮件
// @Tags Emails
// @Produce json
// @Param account query string false "账户ID"
// @Param limit query int false "返回数量"
// @Param offset query int false "偏移量"
// @Param includeDeleted query bool false "包含已删除"
// @Success 200 {object} Response{data=emailListResponse}
// @Router /v1/emails [get]
func (h *Handler) listEmails(c *gin.Context) {
	opts, ok := parseListOptions(c)
	if !ok {
		BadRequest(c, MsgInvalidQuery)
		return
	}

	emails, err := h.emails.FetchEmails(opts)
	if err != nil {
		respondError(c, err, MsgEmailListFailed)
		return
	}
	Success(c, emailList(emails))
}

// getEmail godoc
// @Summary 获取邮件详情
// @Tags Emails
// @Produce json
// @Param id path string true "邮件ID"
// @Success 200 {object} Response{data=domain.Email}
// @Failure 404 {object} Response
// @Router /v1/emails/{id} [get]
func (h *Handler) getEmail(c *gin.Context) {
	email, err := h.emails.GetEmail(c.Param("id"))
	if err != nil {
		respondError(c, err, MsgEmailGetFailed)
		return
	}
	Success(c, email)
}

func (h *Handler) markEmailRead(c *gin.Context) {
	if err := h.emails.MarkAsRead(c.Param("id")); err != nil {
		respondError(c, err, MsgEmailUpdateFailed)
		return
	}
	Success(c, gin.H{"isRead": true})
}

func (h *Handler) toggleStar(c *gin.Context) {
	starred, err := h.emails.ToggleStarred(c.Param("id"))
	if err != nil {
		respondError(c, err, MsgEmailUpdateFailed)
		return
	}
	Success(c, gin.H{"isStarred": starred})
}

// deleteEmail 移入回收站（软删除）
func (h *Handler) deleteEmail(c *gin.Context) {
	if err := h.emails.MoveToTrash(c.Param("id")); err != nil {
		respondError(c, err, MsgEmailUpdateFailed)
		return
	}
	NoContent(c)
}

func (h *Handler) unreadCount(c *gin.Context) {
	n, err := h.emails.UnreadCount(c.Query("account"))
	if err != nil {
		respondError(c, err, MsgUnreadCountFailed)
		return
	}
	Success(c, gin.H{"count": n})
}

// sendEmail godoc
// @Summary 发送邮件
// @Description 通过 SMTP 发送邮件并存入已发送
// @Tags Emails
// @Accept json
// @Produce json
// @Param request body domain.SendEmailInput true "邮件内容"
// @Success 201 {object} Response{data=domain.Email}
// @Failure 400 {object} Response
// @Failure 502 {object} Response
// @Router /v1/emails [post]
func (h *Handler) sendEmail(c *gin.Context) {
	var req domain.SendEmailInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	email, err := h.emails.SendEmail(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, MsgEmailSendFailed)
		return
	}
	Created(c, email)
}
