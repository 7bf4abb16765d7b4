package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neta/pkg/inference"
	"neta/pkg/schema"
)

type stubInferencer struct {
	calls      int
	lastSystem string
	lastUser   string
	lastParams *openai.ChatCompletionNewParams
	out        string
	err        error
}

func (s *stubInferencer) Generate(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	s.lastParams = params
	return s.out, s.err
}

func newTestServer(t *testing.T, inf inference.Inferencer) *Server {
	t.Helper()
	s := NewServer(context.Background(), inf, "")
	s.Chance = func() float64 { return 1 } // toggle off unless a test overrides
	return s
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) schema.GenerateResponse {
	t.Helper()
	var resp schema.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGenerateEndToEnd(t *testing.T) {
	stub := &stubInferencer{out: wellFormed(t, 250)}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"theme":"初めてのデート","length":300}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.NotEmpty(t, resp.Title)
	assert.GreaterOrEqual(t, len([]rune(resp.Body)), 180)
	assert.NotNil(t, resp.Meta.Structure)
	assert.NotNil(t, resp.Meta.Techniques)
	assert.Empty(t, resp.Note)

	assert.Equal(t, 1, stub.calls, "exactly one provider call per request")
	assert.Contains(t, stub.lastUser, "初めてのデート")
	assert.Equal(t, 1.0, stub.lastParams.TopP.Value)
	assert.Equal(t, defaultTemperature, stub.lastParams.Temperature.Value)
	assert.Greater(t, stub.lastParams.MaxCompletionTokens.Value, int64(0))
}

func TestGenerateEmptyBodyUsesDefaults(t *testing.T) {
	stub := &stubInferencer{out: wellFormed(t, 300)}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, stub.lastUser, unspecified)
	assert.Contains(t, stub.lastUser, "210〜350文字")
}

func TestGenerateValidationFailure(t *testing.T) {
	stub := &stubInferencer{out: wellFormed(t, 300)}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":5000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error  string            `json:"error"`
		Detail map[string]string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid input", resp.Error)
	assert.Contains(t, resp.Detail, "length")

	assert.Zero(t, stub.calls, "no provider call on validation failure")
}

func TestGenerateMalformedJSONBody(t *testing.T) {
	stub := &stubInferencer{}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"theme": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, stub.calls)
}

func TestGenerateMissingCredential(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"theme":"遅刻"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestGenerateGarbledOutputNever500(t *testing.T) {
	raw := "モデルが構造を無視して返した散文です。"
	stub := &stubInferencer{out: raw}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":350}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, raw, resp.Body)
	assert.Equal(t, fallbackTitle, resp.Title)
	assert.NotEmpty(t, resp.Note)
	assert.Empty(t, resp.Meta.Structure)
	assert.Empty(t, resp.Meta.Techniques)
}

func TestGenerateShortOutputNote(t *testing.T) {
	stub := &stubInferencer{out: `{"title":"短い","body":"短すぎる話。","meta":{"structure":[],"techniques":[]}}`}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":350}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Equal(t, "短すぎる話。", resp.Body)
	assert.Equal(t, noteTooShort, resp.Note)
}

func TestGenerateTimeout(t *testing.T) {
	stub := &stubInferencer{err: fmt.Errorf("inference aborted: %w", context.DeadlineExceeded)}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":350}`)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestGenerateProviderError(t *testing.T) {
	stub := &stubInferencer{err: fmt.Errorf("provider quota exceeded")}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":350}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "quota")
}

func TestGenerateFillsMetaFromBody(t *testing.T) {
	body := "【導入】朝の話。「遅刻だ！」と叫んだ。まるで嵐みたいな朝だった。ところが実はまだ日曜日だった。"
	stub := &stubInferencer{out: `{"title":"日曜の朝","body":"` + body + `","meta":{"structure":[],"techniques":[]}}`}
	s := newTestServer(t, stub)

	rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.Contains(t, resp.Meta.Structure, "導入")
	assert.Contains(t, resp.Meta.Techniques, "どんでん返し")
}

func TestGenerateHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(s, http.MethodGet, "/api/generate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "/api/generate", resp["route"])
}

func TestGenerateOptionsPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestGenerateDisallowedMethod(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(s, http.MethodPut, "/api/generate", `{}`)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	allow := rec.Header().Get("Allow")
	assert.Contains(t, allow, http.MethodPost)
	assert.Contains(t, allow, http.MethodGet)
}

func TestGenerateCORSOnPost(t *testing.T) {
	stub := &stubInferencer{out: wellFormed(t, 300)}
	s := newTestServer(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(`{"length":350}`))
	req.Header.Set(echoHeaderContentType, "application/json")
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGenerateToggleFrequency(t *testing.T) {
	stub := &stubInferencer{out: wellFormed(t, 300)}
	s := newTestServer(t, stub)

	r := rand.New(rand.NewPCG(7, 11))
	s.Chance = r.Float64

	const n = 1000
	toggled := 0
	for range n {
		rec := doJSON(s, http.MethodPost, "/api/generate", `{"length":350}`)
		require.Equal(t, http.StatusOK, rec.Code)
		if strings.Contains(stub.lastUser, "三段オチ") {
			toggled++
			assert.Contains(t, stub.lastSystem, "三段オチ")
		} else {
			assert.NotContains(t, stub.lastSystem, "三段オチ")
		}
	}

	assert.InDelta(t, threePartChance, float64(toggled)/n, 0.05)
}
