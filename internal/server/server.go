// Package server serves the dashboard pages and the JSON API.
package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/iwvelando/demand-dashboard/internal/assistant"
	"github.com/iwvelando/demand-dashboard/internal/auth"
	"github.com/iwvelando/demand-dashboard/internal/dashboard"
	"github.com/iwvelando/demand-dashboard/pkg/constants"
	"go.uber.org/zap"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed templates/*.html
var templateFiles embed.FS

// Dependencies are the services the handler serves.
type Dependencies struct {
	Dashboard *dashboard.Service
	Assistant *assistant.Service
	Gate      *auth.Gate
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	dashboard     *dashboard.Service
	assistant     *assistant.Service
	gate          *auth.Gate
	pages         pageSet
}

// NewHandler constructs the HTTP handler that serves the web UI and the
// dashboard API.
func NewHandler(logger *zap.Logger, deps Dependencies, maxUploadSize int64, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	gate := deps.Gate
	if gate == nil {
		gate = auth.NewGate(logger, auth.Config{Disabled: true}, nil)
	}

	pages, err := loadPages()
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded templates: %v", err))
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
		dashboard:     deps.Dashboard,
		assistant:     deps.Assistant,
		gate:          gate,
		pages:         pages,
	}

	mux := http.NewServeMux()
	api := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, gate.RequireAPI(fn))
	}
	page := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, gate.RequirePage(fn))
	}

	// Dashboard API
	api("/api/upload", h.handleUpload)
	api("/api/state", h.handleState)
	api("/api/forecast", h.handleForecast)
	api("/api/chart", h.handleChart)
	api("/api/chart.csv", h.handleChartCSV)
	api("/api/metrics", h.handleMetrics)
	api("/api/recommendation", h.handleRecommendation)
	api("/api/chat", h.handleChat)

	// Unauthenticated metadata
	mux.HandleFunc("/api/version", h.handleVersion)
	mux.HandleFunc("/healthz", h.handleHealth)

	// Session endpoints
	mux.HandleFunc(constants.AuthPath, gate.HandleSignIn)
	mux.HandleFunc(constants.AuthPath+"/session", gate.HandleSession)
	mux.HandleFunc(constants.AuthPath+"/signout", gate.HandleSignOut)

	// Pages and form posts
	page("/", h.handleDashboardPage)
	page("/upload", h.handleUploadForm)
	page("/clear", h.handleClearForm)
	page("/chart", h.handleChartPage)
	page("/chatbot", h.handleChatbotPage)
	page("/about", h.handleAboutPage)

	// Static assets
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("failed to prepare embedded static files: %v", err))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))

	return mux
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("dashboard request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
