package server

import (
	"context"
	"math/rand/v2"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"neta/pkg/inference"
)

const defaultTemperature = 0.8

type Server struct {
	Echo       *echo.Echo
	Inferencer inference.Inferencer
	Ctx        context.Context

	// Temperature is the fixed sampling temperature for this deployment.
	Temperature float64

	// Chance supplies the randomness for the per-request stylistic toggle.
	// Replaceable in tests with a fixed value.
	Chance func() float64
}

func NewServer(ctx context.Context, inf inference.Inferencer, allowOrigin string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if allowOrigin == "" {
		allowOrigin = "*"
	}

	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{allowOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	s := &Server{
		Echo:        e,
		Inferencer:  inf,
		Ctx:         ctx,
		Temperature: defaultTemperature,
		Chance:      rand.Float64,
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.Echo.GET("/", s.handleGetRoot)

	api := s.Echo.Group("/api")
	api.GET("/generate", s.handleGetGenerate)   // health ack, no side effects
	api.POST("/generate", s.handlePostGenerate) // primary operation
}

func (s *Server) Start(addr string) error {
	log.Info("server listening", "addr", addr)
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down server")
	return s.Echo.Shutdown(ctx)
}

// handleGetRoot — defined in get.go
// handlePostGenerate — defined in generate.go
