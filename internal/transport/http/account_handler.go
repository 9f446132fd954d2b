package httptransport

import (
	"github.com/gin-gonic/gin"

	"onebox/backend/internal/domain"
)

func (h *Handler) listAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts()
	if err != nil {
		respondError(c, err, MsgAccountListFailed)
		return
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	Success(c, gin.H{"items": accounts, "count": len(accounts)})
}

// addAccount godoc
// @Summary 添加邮箱账户
// @Tags Accounts
// @Accept json
// @Produce json
// @Param request body domain.AddAccountInput true "账户信息"
// @Success 201 {object} Response{data=domain.Account}
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /v1/accounts [post]
func (h *Handler) addAccount(c *gin.Context) {
	var req domain.AddAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	account, err := h.accounts.AddAccount(req)
	if err != nil {
		respondError(c, err, MsgAccountAddFailed)
		return
	}
	Created(c, account)
}
