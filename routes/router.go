package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/controllers"
	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/utils"
)

// SetupRouter wires routes, middlewares, services and controllers.
// files holds both post thumbnails and user avatars.
func SetupRouter(db *gorm.DB, files storage.ThumbnailStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin file logger unavailable, falling back to app logger: %v", err)
		r.Use(utils.RecoveryWithZap(utils.Logger, true))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.Use(middleware.NewMetrics(registry).Handler())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	postStore := store.NewPostStore(db)
	userStore := store.NewUserStore(db)
	processor := storage.NewProcessor(cfg.ThumbnailMaxWidth)
	tokenTTL := time.Duration(cfg.TokenTTLHours) * time.Hour

	postService := services.NewPostService(postStore, userStore, files, processor, cfg.ThumbnailMaxBytes)
	userService := services.NewUserService(userStore, files, processor, cfg.AvatarMaxBytes, tokenTTL)

	postController := controllers.NewPostController(postService)
	userController := controllers.NewUserController(userService, tokenTTL)
	fileController := controllers.NewFileController(files)

	r.GET(strings.TrimRight(cfg.UploadURLPrefix, "/")+"/:name", fileController.Serve)

	limit := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)
	auth := middleware.AuthRequired()

	api := r.Group("/api")

	postsGroup := api.Group("/posts")
	postsGroup.GET("", postController.ListPosts)
	postsGroup.GET("/categories/:category", postController.ListCategoryPosts)
	postsGroup.GET("/users/:id", postController.ListUserPosts)
	postsGroup.POST("", auth, limit, postController.CreatePost)
	postsGroup.GET("/:id", auth, postController.GetPost)
	postsGroup.PATCH("/:id", auth, limit, postController.EditPost)
	postsGroup.DELETE("/:id", auth, limit, postController.DeletePost)

	usersGroup := api.Group("/users")
	usersGroup.POST("/register", limit, userController.Register)
	usersGroup.POST("/login", limit, userController.Login)
	usersGroup.POST("/logout", auth, userController.Logout)
	usersGroup.GET("", userController.ListAuthors)
	usersGroup.GET("/:id", userController.GetUser)
	usersGroup.POST("/change-avatar", auth, limit, userController.ChangeAvatar)
	usersGroup.PATCH("/edit-user", auth, limit, userController.EditUser)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Fail(ctx, utils.NotFoundRoute(ctx.Request.URL.Path))
	})

	return r
}
