package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/rest/middleware"
	"github.com/Guyuepp/newsfeed/internal/rest/request"
	"github.com/Guyuepp/newsfeed/internal/rest/response"
)

type commentHandler struct {
	Service domain.CommentUsecase
}

func NewCommentHandler(svc domain.CommentUsecase) *commentHandler {
	return &commentHandler{
		Service: svc,
	}
}

func (h *commentHandler) CreateComment(c *gin.Context) {
	var req request.Comment
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment := req.ToDomain(c.Param("id"), middleware.Actor(c).ID)
	if err := h.Service.Create(c.Request.Context(), &comment); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.NewCommentFromDomain(&comment))
}

// DeleteComment 作者或管理员可删除
func (h *commentHandler) DeleteComment(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), c.Param("id"), middleware.Actor(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *commentHandler) FetchCommentsByArticle(c *gin.Context) {
	comments, nextCursor, err := h.Service.FetchByArticle(c.Request.Context(), c.Param("id"), c.Query("cursor"), pageNum(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("X-Cursor", nextCursor)
	c.JSON(http.StatusOK, response.NewCommentsFromDomain(comments))
}

func (h *commentHandler) FetchCommentsByUser(c *gin.Context) {
	comments, nextCursor, err := h.Service.FetchByUser(c.Request.Context(), c.Param("id"), c.Query("cursor"), pageNum(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	// 匿名评论不出现在用户主页
	visible := make([]domain.Comment, 0, len(comments))
	for _, cm := range comments {
		if !cm.IsAnonymous || cm.UserID == middleware.Actor(c).ID {
			visible = append(visible, cm)
		}
	}

	c.Header("X-Cursor", nextCursor)
	c.JSON(http.StatusOK, response.NewCommentsFromDomain(visible))
}
