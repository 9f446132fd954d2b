package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// syncResponse 同步结果
type syncResponse struct {
	NewEmails int `json:"newEmails"`
}

// syncEmails godoc
// @Summary 立即同步
// @Description 同步所有已连接账户，部分账户失败时返回 502 并附带已同步数量
// @Tags Sync
// @Produce json
// @Success 200 {object} Response{data=syncResponse}
// @Failure 502 {object} Response{data=syncResponse}
// @Router /v1/sync [post]
func (h *Handler) syncEmails(c *gin.Context) {
	n, err := h.sync.SyncEmails(c.Request.Context())
	if err != nil {
		h.log.Warn("manual sync finished with errors", zap.Int("new_emails", n), zap.Error(err))
		ErrorWithData(c, http.StatusBadGateway, MsgSyncFailed, syncResponse{NewEmails: n})
		return
	}
	Success(c, syncResponse{NewEmails: n})
}
