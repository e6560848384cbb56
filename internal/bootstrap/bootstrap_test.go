package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopewise/estimation-backend/config"
	"github.com/scopewise/estimation-backend/internal/api/http/middleware"
	"github.com/scopewise/estimation-backend/internal/llm"
)

type offlineLLM struct{}

func (offlineLLM) Complete(context.Context, llm.Request) (string, error) {
	return "", errors.New("offline")
}

type noPDF struct{}

func (noPDF) ExtractText(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("offline")
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", AllowedOrigins: []string{"http://localhost:3000"}},
		App:    config.AppConfig{ServiceName: "estimation-backend", Environment: "test", Version: "test"},
		Store:  config.StoreConfig{Driver: config.StoreMemory},
		Redis:  config.RedisConfig{SynonymTTL: time.Hour},
		LLM:    config.LLMConfig{Model: "gpt-test", ChatModel: "gpt-chat"},
		Estimation: config.EstimationConfig{
			HoursPerDay: 8,
		},
	}
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, closeStore, err := OpenStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(closeStore)

	handler, projects := NewEstimation(cfg, EstimationDeps{Store: store, LLM: offlineLLM{}, PDF: noPDF{}, Logger: logger})
	return BuildRouter(RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Store:          projects,
		Estimation:     handler,
	})
}

func TestBuildRouter_Health(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"up"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestBuildRouter_CORS(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_EstimationRoutes(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(`{"name":"Shop","duration":5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "rid-1", w.Header().Get(middleware.RequestIDHeader))

	// Model failures surface as a generic 500.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/estimates/modules", strings.NewReader(`{"input":"a shop"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "offline")
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "cassandra"
	_, _, err := OpenStore(context.Background(), cfg, slog.Default())
	assert.Error(t, err)
}

func TestOpenRedis(t *testing.T) {
	client, err := OpenRedis(context.Background(), &config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = OpenRedis(context.Background(), &config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = OpenRedis(context.Background(), &config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "production", "warn").Info("hidden")
	NewLogger(&buf, "production", "warn").Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(&buf, "development", "debug").Debug("dev line")
	assert.Contains(t, buf.String(), "msg=\"dev line\"")
}

func TestOpenDB_RequiresDSN(t *testing.T) {
	_, _, err := OpenDB(context.Background(), DBOptions{})
	assert.EqualError(t, err, "DB_DSN is not set")
}
