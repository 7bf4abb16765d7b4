package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/openai/openai-go/v3"
	"github.com/segmentio/ksuid"

	"neta/pkg/schema"
	"neta/pkg/tagger"
	"neta/pkg/utils"
)

const (
	// generateTimeout bounds the single provider call; the request fails
	// with 504 once it elapses.
	generateTimeout = 30 * time.Second

	// threePartChance is the probability of instructing a three-part
	// escalating punchline for a given request.
	threePartChance = 0.35
)

// POST /api/generate
func (s *Server) handlePostGenerate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, utils.ErrDetailJSON("Invalid input", map[string]string{
			"body": "failed reading request body",
		}))
	}

	var payload generatePayload
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			log.Warn("invalid JSON in /api/generate", "error", err)
			return c.JSON(http.StatusBadRequest, utils.ErrDetailJSON("Invalid input", map[string]string{
				"body": "request body must be a JSON object",
			}))
		}
	}

	req, detail := validateRequest(payload)
	if detail != nil {
		log.Warn("request rejected", "detail", detail)
		return c.JSON(http.StatusBadRequest, utils.ErrDetailJSON("Invalid input", detail))
	}

	if s.Inferencer == nil {
		log.Error("generation requested but no provider API key is configured")
		return c.JSON(http.StatusInternalServerError, utils.ErrJSON("provider API key is not configured"))
	}

	threePart := s.Chance() < threePartChance
	system := systemPrompt(threePart)
	user := userPrompt(req, threePart)

	params := &openai.ChatCompletionNewParams{
		MaxCompletionTokens: openai.Int(utils.TokenBudget(system+user, req.Length)),
		Temperature:         openai.Float(s.Temperature),
		TopP:                openai.Float(1.0),
		ResponseFormat:      schema.EpisodeResponseFormat(),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), generateTimeout)
	defer cancel()

	started := time.Now()
	raw, err := s.Inferencer.Generate(ctx, params, system, user)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("generation timed out", "after", time.Since(started))
			return c.JSON(http.StatusGatewayTimeout, utils.ErrJSON("generation timed out"))
		}
		log.Error("generation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, utils.ErrJSON("generation failed: "+err.Error()))
	}

	ep, note := normalizeEpisode(raw, req.Length)

	// the model sometimes returns valid structure but forgets to declare
	// its meta; fill the gaps from the body text. The malformed-output
	// fallback keeps its empty meta untouched.
	if note != noteMalformed {
		if len(ep.Meta.Structure) == 0 {
			ep.Meta.Structure = tagger.Structures(ep.Body)
		}
		if len(ep.Meta.Techniques) == 0 {
			ep.Meta.Techniques = tagger.Techniques(ep.Body)
		}
	}

	id := ksuid.New().String()
	log.Info("episode generated",
		"id", id,
		"three_part", threePart,
		"chars", utils.RuneLen(ep.Body),
		"degraded", note != "",
		"took", time.Since(started))

	return c.JSON(http.StatusOK, schema.GenerateResponse{
		ID:    id,
		Title: ep.Title,
		Body:  ep.Body,
		Meta:  ep.Meta,
		Note:  note,
	})
}
