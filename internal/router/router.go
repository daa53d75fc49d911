package router

import (
	"net/http"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pagedrop/internal/handler"
	"github.com/pagedrop/internal/middleware"
)

// Options controls transport concerns around the API.
type Options struct {
	// MaxBodyBytes caps request bodies; zero disables the limit.
	MaxBodyBytes int64
	// StaticDir, when set, holds the built admin UI served for unmatched GETs.
	StaticDir string
	// AllowedOrigins lists CORS origins; empty or "*" allows all.
	AllowedOrigins []string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging())
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	if opts.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBody(opts.MaxBodyBytes))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", api.Health)
	r.GET("/ready", api.Ready)
	r.GET("/live", api.Live)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 公开访问：按 slug 输出原始 HTML
	r.GET("/s/:slug", api.ShowPublicPage)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/login", api.Login)

		// 需要认证的管理接口
		auth := apiGroup.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/pages", api.ListPages)
			auth.POST("/pages", api.CreatePage)
			auth.GET("/pages/:id", api.GetPage)
			auth.PUT("/pages/:id", api.UpdatePage)
			auth.PATCH("/pages/:id/publish", api.TogglePublish)
			auth.DELETE("/pages/:id", api.DeletePage)
		}
	}

	if opts.StaticDir != "" {
		r.NoRoute(spaFallback(opts.StaticDir))
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		})
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// spaFallback serves files from dir and falls back to index.html so client
// side routes survive a reload. API and public page paths stay 404.
func spaFallback(dir string) gin.HandlerFunc {
	fs := http.Dir(dir)
	index := filepath.Join(dir, "index.html")

	return func(c *gin.Context) {
		reqPath := c.Request.URL.Path
		if (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) ||
			strings.HasPrefix(reqPath, "/api/") || strings.HasPrefix(reqPath, "/s/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		clean := path.Clean("/" + reqPath)
		if f, err := fs.Open(clean); err == nil {
			info, statErr := f.Stat()
			f.Close()
			if statErr == nil && !info.IsDir() {
				c.FileFromFS(clean, fs)
				return
			}
		}
		c.File(index)
	}
}
