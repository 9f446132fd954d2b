package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"onebox/backend/internal/domain"
)

// searchTextResponse 运算符搜索响应，附带解析后的查询
type searchTextResponse struct {
	emailListResponse
	Query domain.SearchQuery `json:"query"`
}

// searchEmails godoc
// @Summary 结构化搜索
// @Description 关键词加过滤条件，结果按日期倒序
// @Tags Search
// @Accept json
// @Produce json
// @Param request body domain.SearchQuery true "搜索条件"
// @Success 200 {object} Response{data=emailListResponse}
// @Router /v1/search [post]
func (h *Handler) searchEmails(c *gin.Context) {
	var q domain.SearchQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	results, err := h.search.Search(q)
	if err != nil {
		respondError(c, err, MsgSearchFailed)
		return
	}
	Success(c, emailList(results))
}

// searchText 解析 from:/is:/label: 等运算符后执行搜索
func (h *Handler) searchText(c *gin.Context) {
	includeDeleted := false
	if v := c.Query("includeDeleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(c, MsgInvalidQuery)
			return
		}
		includeDeleted = b
	}

	results, q, err := h.search.SearchText(c.Query("q"), includeDeleted)
	if err != nil {
		respondError(c, err, MsgSearchFailed)
		return
	}
	Success(c, searchTextResponse{emailListResponse: emailList(results), Query: q})
}

func (h *Handler) searchSuggestions(c *gin.Context) {
	suggestions := h.search.Suggestions(c.Query("q"))
	if suggestions == nil {
		suggestions = []string{}
	}
	Success(c, gin.H{"suggestions": suggestions})
}
