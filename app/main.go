package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Guyuepp/newsfeed/domain"
	"github.com/Guyuepp/newsfeed/internal/auth"
	"github.com/Guyuepp/newsfeed/internal/repository"
	mysqlRepo "github.com/Guyuepp/newsfeed/internal/repository/mysql"
	myRedisCache "github.com/Guyuepp/newsfeed/internal/repository/redis"
	"github.com/Guyuepp/newsfeed/internal/rest"
	"github.com/Guyuepp/newsfeed/internal/rest/middleware"
	"github.com/Guyuepp/newsfeed/internal/usecase/article"
	"github.com/Guyuepp/newsfeed/internal/usecase/comment"
	"github.com/Guyuepp/newsfeed/internal/usecase/user"
	"github.com/Guyuepp/newsfeed/internal/workers"
)

const (
	defaultTimeout      = 30
	defaultAddress      = ":9090"
	defaultCacheDB      = 0
	defaultBloomBitSize = 10000000
	defaultJWTTTLHours  = 24
	dbMaxRetry          = 10
	dbRetryIntervalSec  = 2
	shutdownTimeout     = 5 * time.Second
)

func init() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file found, using the process environment")
	}
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		if os.Getenv(key) != "" {
			logrus.Warnf("failed to parse %s, using default %d", key, def)
		}
		return def
	}
	return v
}

func openDB() (*gorm.DB, error) {
	dbHost := os.Getenv("DATABASE_HOST")
	dbPort := os.Getenv("DATABASE_PORT")
	dbUser := os.Getenv("DATABASE_USER")
	dbPass := os.Getenv("DATABASE_PASS")
	dbName := os.Getenv("DATABASE_NAME")
	connection := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", dbUser, dbPass, dbHost, dbPort, dbName)
	val := url.Values{}
	val.Add("parseTime", "1")
	val.Add("loc", "UTC")
	val.Add("charset", "utf8mb4")
	dsn := fmt.Sprintf("%s?%s", connection, val.Encode())

	var (
		db  *gorm.DB
		err error
	)
	for i := range dbMaxRetry {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				if err = sqlDB.Ping(); err == nil {
					return db, nil
				}
				_ = sqlDB.Close()
			} else {
				err = dbErr
			}
		}
		logrus.Warnf("failed to connect to database (attempt %d/%d): %v", i+1, dbMaxRetry, err)
		time.Sleep(dbRetryIntervalSec * time.Second)
	}
	return nil, err
}

func providerSecrets() map[string][]byte {
	return map[string][]byte{
		domain.ProviderGoogle: []byte(os.Getenv("GOOGLE_ID_TOKEN_SECRET")),
		domain.ProviderApple:  []byte(os.Getenv("APPLE_ID_TOKEN_SECRET")),
	}
}

func allowedOrigins() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"*"}
	}
	var res []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}

func main() {
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) < auth.MinSecretLen {
		logrus.Fatalf("JWT_SECRET must be at least %d bytes", auth.MinSecretLen)
	}

	//prepare database
	db, err := openDB()
	if err != nil {
		logrus.Fatalf("could not connect to database after retries: %v", err)
	}
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			logrus.Errorf("got error when getting sql.DB from gorm.DB: %v", err)
			return
		}
		if err := sqlDB.Close(); err != nil {
			logrus.Errorf("got error when closing the DB connection: %v", err)
		}
	}()
	if err := mysqlRepo.AutoMigrate(db); err != nil {
		logrus.Fatalf("failed to migrate schema: %v", err)
	}

	// prepare cache
	client := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("CACHE_HOST") + ":" + os.Getenv("CACHE_PORT"),
		Password: os.Getenv("CACHE_PASS"),
		DB:       envInt("CACHE_DB", defaultCacheDB),
	})
	defer func() {
		if err := client.Close(); err != nil {
			logrus.Errorf("got error when closing the cache connection: %v", err)
		}
	}()
	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to open connection to cache: %v", err)
	}

	// Prepare Repository
	userRepo := mysqlRepo.NewUserRepository(db)
	commentRepo := mysqlRepo.NewCommentRepository(db)

	// Article相关的三层架构
	// 1. DB层
	articleDBRepo := mysqlRepo.NewArticleDBRepository(db)
	// 2. Cache层
	articleCache := myRedisCache.NewArticleCache(client)
	// 3. Repository协调层
	articleRepo := repository.NewArticleRepository(articleDBRepo, articleCache, userRepo)

	bloomBitSize, err := strconv.ParseUint(os.Getenv("BLOOM_FILTER_SIZE"), 10, 64)
	if err != nil {
		bloomBitSize = defaultBloomBitSize
	}
	bloomRepo := myRedisCache.NewRedisBloomRepo(client, bloomBitSize)

	// Start worker
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	likesSyncer := workers.NewSyncLikesWorker(articleDBRepo)
	wg.Add(1)
	go func() {
		defer wg.Done()
		likesSyncer.Start(ctx)
	}()

	// Build service Layer
	jwtTTL := time.Duration(envInt("JWT_EXPIRE_HOURS", defaultJWTTTLHours)) * time.Hour
	articleSvc := article.NewService(articleRepo, articleCache, likesSyncer, bloomRepo)
	userSvc := user.NewService(userRepo, articleRepo, auth.NewHMACProviderVerifier(providerSecrets()), jwtSecret, jwtTTL)
	commentSvc := comment.NewService(commentRepo, articleRepo, userRepo, bloomRepo)

	// Prepare bloom filter
	if err := articleSvc.InitBloomFilter(ctx); err != nil {
		logrus.Errorf("failed to init bloom filter: %v", err)
		return
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	route := rest.NewRouter(rest.RouterConfig{
		JWTSecret:      jwtSecret,
		Timeout:        time.Duration(envInt("CONTEXT_TIMEOUT", defaultTimeout)) * time.Second,
		AllowedOrigins: allowedOrigins(),
		RPS:            float64(envInt("RATE_LIMIT_RPS", 0)),
		Burst:          envInt("RATE_LIMIT_BURST", 0),
		Metrics:        middleware.NewMetrics(prometheus.DefaultRegisterer),
	}, articleSvc, commentSvc, userSvc)
	route.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Start Server
	address := os.Getenv("SERVER_ADDRESS")
	if address == "" {
		address = defaultAddress
	}
	srv := &http.Server{
		Addr:    address,
		Handler: route,
	}
	go func() {
		logrus.Infof("Server is running on %s", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %s", err)
		}
	}()

	// shutdown
	<-ctx.Done()
	logrus.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Waiting for worker to cleanup...")
	wg.Wait()
	logrus.Info("Server exiting")
}
