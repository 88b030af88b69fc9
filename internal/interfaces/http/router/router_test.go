package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tattoo-ai-api/internal/application/design"
	"tattoo-ai-api/internal/config"
	"tattoo-ai-api/internal/interfaces/http/handler"
	"tattoo-ai-api/internal/workflow/catalog"
	"tattoo-ai-api/internal/workflow/pipeline"
	"tattoo-ai-api/internal/workflow/transfer"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := catalog.NewStore(catalog.MustLoadDefault())
	svc := design.NewService(store, pipeline.New(store), transfer.New(store, pipeline.DefaultBackend), nil, nil, nil, design.Options{})

	cfg := &config.Config{}
	cfg.App.Name = "tattoo-ai-api"
	cfg.Observability.Metrics.Enabled = true
	cfg.Observability.Metrics.Path = "/metrics"
	cfg.Security.JWT.Secret = "s3cret"
	cfg.Security.JWT.Issuer = "tattoo-ai-api"
	cfg.Security.CORS.AllowedOrigins = []string{"*"}

	return New(cfg, &Handlers{
		Health:  handler.NewHealthHandler("test", store, nil),
		Prompt:  handler.NewPromptHandler(svc),
		Style:   handler.NewStyleHandler(svc),
		Model:   handler.NewModelHandler(svc),
		Catalog: handler.NewCatalogHandler(svc),
	}, nil)
}

func TestRouter_Routes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/live", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/v1/catalog", "", http.StatusOK},
		{http.MethodPost, "/v1/prompts/analyze", `{"prompt":"rose"}`, http.StatusOK},
		{http.MethodPost, "/v1/prompts/enhance", `{"prompt":"rose"}`, http.StatusOK},
		{http.MethodGet, "/v1/prompts/history", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/styles/transfer", `{"original_prompt":"rose","original_style":"traditional","target_style":"watercolor"}`, http.StatusOK},
		{http.MethodPost, "/v1/models/recommend", `{"prompt":"rose"}`, http.StatusOK},
		{http.MethodGet, "/v1/unknown", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.Engine().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}
