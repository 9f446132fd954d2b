package httptransport

import (
	"github.com/gin-gonic/gin"

	"onebox/backend/internal/domain"
)

// sentimentRequest 情感分析请求
type sentimentRequest struct {
	Content string `json:"content" binding:"required"`
}

// categorizeEmail godoc
// @Summary 邮件分类
// @Description 对邮件执行规则分类并保存结果
// @Tags AI
// @Produce json
// @Param id path string true "邮件ID"
// @Success 200 {object} Response{data=ai.Classification}
// @Failure 404 {object} Response
// @Failure 422 {object} Response
// @Router /v1/emails/{id}/categorize [post]
func (h *Handler) categorizeEmail(c *gin.Context) {
	result, err := h.ai.CategorizeEmail(c.Param("id"))
	if err != nil {
		respondError(c, err, MsgCategorizeFailed)
		return
	}
	Success(c, result)
}

// generateReply 生成回复建议，style 为空时使用设置中的默认风格
func (h *Handler) generateReply(c *gin.Context) {
	style := domain.ReplyStyle(c.Query("style"))

	reply, err := h.ai.GenerateReply(c.Param("id"), style)
	if err != nil {
		respondError(c, err, MsgReplyFailed)
		return
	}
	Success(c, gin.H{"reply": reply})
}

func (h *Handler) analyzeSentiment(c *gin.Context) {
	var req sentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}
	Success(c, h.ai.AnalyzeSentiment(req.Content))
}

func (h *Handler) getAISettings(c *gin.Context) {
	settings, err := h.ai.Settings()
	if err != nil {
		respondError(c, err, MsgSettingsGetFailed)
		return
	}
	Success(c, settings)
}

func (h *Handler) updateAISettings(c *gin.Context) {
	var req domain.AISettings
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	settings, err := h.ai.UpdateSettings(req)
	if err != nil {
		respondError(c, err, MsgSettingsSaveFailed)
		return
	}
	SuccessWithMsg(c, "设置已保存", settings)
}
