package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ngram-go/internal/config"
	"ngram-go/internal/service/ngram"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*NGramServer, *ngram.NGramService) {
	t.Helper()
	cfg := config.Default()
	cfg.NGram.N = 2
	cfg.NGram.Strategy = "greedy"
	service := ngram.NewNGramServiceFromConfig(cfg, nil, zap.NewNop())
	return NewNGramServer(service, zap.NewNop()), service
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNGramServer_TrainAndGenerate(t *testing.T) {
	server, service := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleTrainModel(ctx, nil, TrainModelParams{Name: "ab", Text: "a b a b"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "3 windows")

	models := service.List()
	require.Len(t, models, 1)

	result, _, err = server.handleGenerateText(ctx, nil, GenerateTextParams{
		ModelID:   models[0].ID,
		SeedText:  "b",
		MaxLength: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "b a b", resultText(t, result))

	result, _, err = server.handleListModels(ctx, nil, ListModelsParams{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resultText(t, result), models[0].ID))
}

func TestNGramServer_ToolErrorsAreReported(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	result, _, err := server.handleTrainModel(ctx, nil, TrainModelParams{})
	require.NoError(t, err)
	assert.Equal(t, "One of corpus, corpus_path or text is required", resultText(t, result))

	result, _, err = server.handleTrainModel(ctx, nil, TrainModelParams{CorpusPath: "/etc/passwd"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "corpus path not allowed")

	result, _, err = server.handleGenerateText(ctx, nil, GenerateTextParams{ModelID: "missing"})
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "model not found")

	result, _, err = server.handleListModels(ctx, nil, ListModelsParams{})
	require.NoError(t, err)
	assert.Equal(t, "No models trained.", resultText(t, result))
}

func TestNGramServer_RoutesMounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server, _ := newTestServer(t)
	router := gin.New()
	server.SetupHTTPRoutes(router)

	// A GET without a session is rejected by the transport, which proves the route reaches it.
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}
