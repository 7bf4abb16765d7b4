package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleGetRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"service": "Neta Generation API",
		"status":  "ok",
	})
}

// GET /api/generate
func (s *Server) handleGetGenerate(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok":    true,
		"route": "/api/generate",
	})
}
