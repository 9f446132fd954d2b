package httptransport

import (
	"github.com/gin-gonic/gin"

	"onebox/backend/internal/domain"
)

func (h *Handler) getNotificationSettings(c *gin.Context) {
	settings, err := h.notifications.Settings()
	if err != nil {
		respondError(c, err, MsgSettingsGetFailed)
		return
	}
	Success(c, settings)
}

func (h *Handler) updateNotificationSettings(c *gin.Context) {
	var req domain.NotificationSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	settings, err := h.notifications.UpdateSettings(req)
	if err != nil {
		respondError(c, err, MsgSettingsSaveFailed)
		return
	}
	SuccessWithMsg(c, "设置已保存", settings)
}

// testNotificationSettings godoc
// @Summary 测试通知设置
// @Description 向已启用的渠道同步发送一条测试通知，请求体为空时使用当前设置
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body domain.NotificationSettings false "待测试的设置"
// @Success 200 {object} Response{data=service.TestResult}
// @Router /v1/settings/notifications/test [post]
func (h *Handler) testNotificationSettings(c *gin.Context) {
	var settings domain.NotificationSettings
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&settings); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	} else {
		current, err := h.notifications.Settings()
		if err != nil {
			respondError(c, err, MsgSettingsGetFailed)
			return
		}
		settings = current
	}

	Success(c, h.notifications.TestSettings(c.Request.Context(), settings))
}

// notifyEmail 手动为单封邮件派发通知
func (h *Handler) notifyEmail(c *gin.Context) {
	queued, err := h.notifications.NotifyEmail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, MsgNotifyFailed)
		return
	}
	Success(c, gin.H{"queued": queued})
}
