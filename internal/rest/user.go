package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/rest/middleware"
	"github.com/Guyuepp/newsfeed/internal/rest/request"
	"github.com/Guyuepp/newsfeed/internal/rest/response"
)

type UserHandler struct {
	Service domain.UserUsecase
}

func NewUserHandler(svc domain.UserUsecase) *UserHandler {
	return &UserHandler{
		Service: svc,
	}
}

func (h *UserHandler) Register(c *gin.Context) {
	var req request.Register
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Service.Register(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.NewAuthFromDomain(res))
}

func (h *UserHandler) Login(c *gin.Context) {
	var req request.Login
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewAuthFromDomain(res))
}

func (h *UserHandler) LoginWithProvider(c *gin.Context) {
	var req request.ProviderLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Service.LoginWithProvider(c.Request.Context(), c.Param("provider"), req.IDToken)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewAuthFromDomain(res))
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.Service.Profile(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewProfileFromDomain(u))
}

func (h *UserHandler) AddBookmark(c *gin.Context) {
	res, err := h.Service.AddBookmark(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewBookmarksFromDomain(res))
}

func (h *UserHandler) RemoveBookmark(c *gin.Context) {
	res, err := h.Service.RemoveBookmark(c.Request.Context(), middleware.Actor(c).ID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewBookmarksFromDomain(res))
}
