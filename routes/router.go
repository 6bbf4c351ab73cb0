package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkov/inkwell/config"
	"github.com/avolkov/inkwell/controllers"
	"github.com/avolkov/inkwell/middleware"
	"github.com/avolkov/inkwell/templates"
	"github.com/avolkov/inkwell/utils"
)

// SetupRouter wires routes, middlewares and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
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
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Record PV after each request and resolve the session user before it.
	r.Use(middleware.PageViewRecorder(db))
	r.Use(middleware.CurrentUser())

	r.SetHTMLTemplate(templates.Load())

	postController := controllers.NewPostController(db)
	authController := controllers.NewAuthController(db)
	statsController := controllers.NewStatsController(db)

	r.GET("/", postController.Index)
	r.GET("/group/", postController.GroupIndex)
	r.GET("/group/:slug/", postController.GroupPosts)
	r.GET("/profile/:username/", postController.Profile)
	r.GET("/posts/:id/", postController.Detail)

	authed := r.Group("")
	authed.Use(middleware.LoginRequired())
	authed.GET("/create/", postController.CreateForm)
	authed.POST("/create/", postController.Create)
	authed.GET("/posts/:id/edit/", postController.EditForm)
	authed.POST("/posts/:id/edit/", postController.Edit)

	auth := r.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware())
	auth.GET("/login/", authController.LoginForm)
	auth.POST("/login/", authController.Login)
	auth.GET("/register/", authController.RegisterForm)
	auth.POST("/register/", authController.Register)
	auth.POST("/logout/", middleware.LoginRequired(), authController.Logout)
	auth.GET("/captcha/", authController.Captcha)
	auth.GET("/oauth/github/login/", authController.OAuthRedirect)
	auth.GET("/oauth/github/callback/", authController.OAuthCallback)

	r.GET("/stats/", statsController.GetStats)
	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	// Unknown paths 404 for every client type.
	r.NoRoute(func(ctx *gin.Context) {
		ctx.HTML(http.StatusNotFound, "404.html", nil)
	})

	return r
}
