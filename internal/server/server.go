package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/GDG-HUFS-Idea/sparklens/config"
	"github.com/GDG-HUFS-Idea/sparklens/internal/analysis"
	"github.com/GDG-HUFS-Idea/sparklens/internal/cache"
	"github.com/GDG-HUFS-Idea/sparklens/internal/store"
)

// Run wires the whole service and serves HTTP until the listener stops.
func Run(addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := appconfig.LoadConfig("")
	if err := Migrate("file://migrations", cfg.Databases.Postgres.DSN(), "up", 0); err != nil {
		baseLogger.Printf("migrations: %v", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Databases.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.Databases.Redis.Addr(), cfg.Databases.Redis.Pass, cfg.Databases.Redis.DB)
	if err != nil {
		return fmt.Errorf("redis connection failed (%s): %w", cfg.Databases.Redis.Addr(), err)
	}
	progress := cache.NewProgressStore(rdb)

	research := analysis.NewResearch(
		analysis.NewOpenAIClient(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.Model),
		analysis.NewPerplexityClient(cfg.Providers.Perplexity.APIKey, cfg.Providers.Perplexity.Model),
		nil,
	)
	pipeline := analysis.NewPipeline(research, progress, st, nil)

	secret := []byte(cfg.General.JWTSecret)
	api := e.Group("/api")
	ah := &AnalysisHandler{Pipeline: pipeline, Progress: progress, Logger: baseLogger}
	ah.Register(api.Group("/analyses"), secret)
	ph := &ProjectsHandler{Store: st}
	ph.Register(api.Group("/projects"), secret)

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8080"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
