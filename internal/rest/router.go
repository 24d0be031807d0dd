package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/rest/middleware"
)

type RouterConfig struct {
	JWTSecret      []byte
	Timeout        time.Duration
	AllowedOrigins []string
	// RPS and Burst bound mutations per actor
	RPS     float64
	Burst   int
	Metrics *middleware.Metrics
}

// NewRouter registers every route of the news API on a fresh engine
func NewRouter(cfg RouterConfig, articleSvc domain.ArticleUsecase, commentSvc domain.CommentUsecase, userSvc domain.UserUsecase) *gin.Engine {
	route := gin.New()
	route.Use(gin.Recovery())
	if cfg.Metrics != nil {
		route.Use(cfg.Metrics.Handler())
	}
	route.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.Timeout > 0 {
		route.Use(middleware.SetRequestContextWithTimeout(cfg.Timeout))
	}

	articleHandler := NewArticleHandler(articleSvc)
	userHandler := NewUserHandler(userSvc)
	commentHandler := NewCommentHandler(commentSvc)

	route.POST("/register", userHandler.Register)
	route.POST("/login", userHandler.Login)
	route.POST("/login/:provider", userHandler.LoginWithProvider)

	public := route.Group("/")
	public.Use(middleware.OptionalAuth(cfg.JWTSecret))
	{
		public.GET("/articles", articleHandler.FetchArticle)
		public.GET("/articles/ranks", articleHandler.FetchRank)
		public.GET("/articles/:id", articleHandler.GetByID)
		public.GET("/articles/:id/comments", commentHandler.FetchCommentsByArticle)
		public.GET("/users/:id/comments", commentHandler.FetchCommentsByUser)
	}

	authorized := route.Group("/")
	authorized.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.RateLimit(cfg.RPS, cfg.Burst))
	{
		authorized.GET("/me", userHandler.Me)
		authorized.POST("/me/bookmarks/:id", userHandler.AddBookmark)
		authorized.DELETE("/me/bookmarks/:id", userHandler.RemoveBookmark)
		authorized.POST("/articles/:id/like", articleHandler.Like)
		authorized.DELETE("/articles/:id/like", articleHandler.Unlike)
		authorized.POST("/articles/:id/comments", commentHandler.CreateComment)
		authorized.DELETE("/comments/:id", commentHandler.DeleteComment)
	}

	admin := authorized.Group("/")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/articles", articleHandler.Store)
		admin.PUT("/articles/:id", articleHandler.Update)
		admin.DELETE("/articles/:id", articleHandler.Delete)
	}

	return route
}
