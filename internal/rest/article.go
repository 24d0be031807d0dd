package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/repository"
	"github.com/Guyuepp/newsfeed/internal/rest/middleware"
	"github.com/Guyuepp/newsfeed/internal/rest/request"
	"github.com/Guyuepp/newsfeed/internal/rest/response"
)

// ArticleHandler  represent the httphandler for article
type ArticleHandler struct {
	Service domain.ArticleUsecase
}

const (
	DefaultRankLimit = 10
	RankMin          = 1
	RankMax          = 50
)

func NewArticleHandler(svc domain.ArticleUsecase) *ArticleHandler {
	return &ArticleHandler{
		Service: svc,
	}
}

func pageNum(c *gin.Context) int64 {
	num, err := strconv.ParseInt(c.Query("num"), 10, 64)
	if err != nil {
		return repository.DefaultPageNum
	}
	repository.PageVerify(&num)
	return num
}

// GetByID will get article by given id
func (a *ArticleHandler) GetByID(c *gin.Context) {
	art, err := a.Service.GetByID(c.Request.Context(), c.Param("id"), middleware.Actor(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewArticleFromDomain(&art))
}

// FetchArticle will fetch the articles based on given params
func (a *ArticleHandler) FetchArticle(c *gin.Context) {
	filter := domain.ArticleFilter{
		Cursor:   c.Query("cursor"),
		Num:      pageNum(c),
		Category: c.Query("category"),
	}

	listAr, nextCursor, err := a.Service.Fetch(c.Request.Context(), filter, middleware.Actor(c).ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.Header("X-Cursor", nextCursor)
	c.JSON(http.StatusOK, response.NewArticlesFromDomain(listAr))
}

// Store will store the article by given request body
func (a *ArticleHandler) Store(c *gin.Context) {
	var req request.Article
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	article := req.ToDomain()
	article.Author.ID = middleware.Actor(c).ID

	if err := a.Service.Store(c.Request.Context(), &article); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.NewArticleFromDomain(&article))
}

// Update rewrites the article by given request body
func (a *ArticleHandler) Update(c *gin.Context) {
	var req request.Article
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	article := req.ToDomain()
	article.ID = c.Param("id")

	if err := a.Service.Update(c.Request.Context(), &article); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewArticleFromDomain(&article))
}

// Delete will delete the article by given param
func (a *ArticleHandler) Delete(c *gin.Context) {
	if err := a.Service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Like adds the caller to the liker set, a repeated like changes nothing
func (a *ArticleHandler) Like(c *gin.Context) {
	res, err := a.Service.Like(c.Request.Context(), domain.UserLike{
		ArticleID: c.Param("id"),
		UserID:    middleware.Actor(c).ID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewLikeFromDomain(res))
}

// Unlike removes the caller from the liker set, unliking twice changes nothing
func (a *ArticleHandler) Unlike(c *gin.Context) {
	res, err := a.Service.Unlike(c.Request.Context(), domain.UserLike{
		ArticleID: c.Param("id"),
		UserID:    middleware.Actor(c).ID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewLikeFromDomain(res))
}

func (a *ArticleHandler) FetchRank(c *gin.Context) {
	limit, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || limit < RankMin || limit > RankMax {
		if c.Query("limit") != "" {
			logrus.Debugf("Invalid param 'limit': %q", c.Query("limit"))
		}
		limit = DefaultRankLimit
	}

	var listAr []domain.Article
	switch c.DefaultQuery("type", "daily") {
	case "daily":
		listAr, err = a.Service.FetchDailyRank(c.Request.Context(), limit)
	case "history":
		listAr, err = a.Service.FetchHistoryRank(c.Request.Context(), limit)
	default:
		c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid rank type"})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewArticlesFromDomain(listAr))
}
