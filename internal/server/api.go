package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/iwvelando/demand-dashboard/internal/assistant"
	"github.com/iwvelando/demand-dashboard/internal/chart"
	"github.com/iwvelando/demand-dashboard/internal/dashboard"
	"github.com/iwvelando/demand-dashboard/internal/metrics"
	"github.com/iwvelando/demand-dashboard/pkg/output"
	"go.uber.org/zap"
)

type uploadResponse struct {
	Notification dashboard.Notification `json:"notification"`
	State        dashboard.State        `json:"state"`
	Error        string                 `json:"error,omitempty"`
}

type chartResponse struct {
	Points     []chart.Point `json:"points"`
	Labels     []string      `json:"labels"`
	TickLayout string        `json:"tickLayout"`
	ShowZoom   bool          `json:"showZoom"`
	Sample     bool          `json:"sample"`
}

type metricsResponse struct {
	Cards       []metrics.Card        `json:"cards"`
	Unavailable []string              `json:"unavailable,omitempty"`
	Accuracy    *metrics.AccuracyCard `json:"accuracy,omitempty"`
}

type recommendationResponse struct {
	Available bool   `json:"available"`
	Text      string `json:"text"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply      string              `json:"reply,omitempty"`
	Transcript []assistant.Message `json:"transcript"`
}

// detached keeps the request's values but not its cancellation, so an
// outbound call runs to completion after the client goes away.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// uploadedFile is the "file" part of a multipart upload.
type uploadedFile struct {
	file   multipart.File
	header *multipart.FileHeader
}

// readUpload parses the multipart body and returns the "file" part. On
// failure it has already written the error response.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, op string) (*uploadedFile, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing demand data file", op)
		return nil, false
	}
	return &uploadedFile{file: file, header: header}, true
}

func (u *uploadedFile) close(logger *zap.Logger, op string) {
	if err := u.file.Close(); err != nil {
		logger.Warn("failed to close uploaded file",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpload"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	upload, ok := h.readUpload(w, r, op)
	if !ok {
		return
	}
	defer upload.close(h.logger, op)

	info := dashboard.FileInfo{Name: upload.header.Filename, Size: upload.header.Size}
	notification, err := h.dashboard.UploadFile(detached(r), info, upload.file)
	switch {
	case errors.Is(err, dashboard.ErrUploadInProgress):
		h.respondErrorWithOp(w, http.StatusConflict, err.Error(), op)
	case err != nil:
		h.logger.Error("upload failed",
			zap.String("op", op),
			zap.String("filename", upload.header.Filename),
			zap.Error(err),
		)
		h.writeJSON(w, http.StatusBadGateway, uploadResponse{
			Notification: notification,
			State:        h.dashboard.State(),
			Error:        err.Error(),
		})
	default:
		h.writeJSON(w, http.StatusOK, uploadResponse{
			Notification: notification,
			State:        h.dashboard.State(),
		})
	}
}

func (h *handler) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeJSON(w, http.StatusOK, h.dashboard.State())
}

func (h *handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleForecast"
	switch r.Method {
	case http.MethodGet:
		result, ok := h.dashboard.Result(r.Context())
		if !ok {
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no forecast data"})
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	case http.MethodDelete:
		notification, err := h.dashboard.Clear(r.Context())
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
			return
		}
		h.writeJSON(w, http.StatusOK, uploadResponse{
			Notification: notification,
			State:        h.dashboard.State(),
		})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// currentSeries returns the chart series of the cached forecast, or the
// sample series when nothing is cached.
func (h *handler) currentSeries(r *http.Request) chart.Series {
	result, _ := h.dashboard.Result(r.Context())
	return chart.Transform(result)
}

func (h *handler) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	series := h.currentSeries(r)
	h.writeJSON(w, http.StatusOK, chartResponse{
		Points:     series.Points,
		Labels:     series.Labels(),
		TickLayout: series.TickLayout(),
		ShowZoom:   series.ShowZoom(),
		Sample:     series.Sample,
	})
}

func (h *handler) handleChartCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="forecast.csv"`)
	if err := output.SeriesCSV(w, h.currentSeries(r)); err != nil {
		h.logger.Error("failed to write chart CSV",
			zap.String("op", "server.handleChartCSV"),
			zap.Error(err),
		)
	}
}

func (h *handler) currentMetrics(r *http.Request) metricsResponse {
	result, _ := h.dashboard.Result(r.Context())
	cards := metrics.Project(result)
	resp := metricsResponse{Cards: cards, Unavailable: metrics.Unavailable(cards)}
	if state := h.dashboard.State(); state.HasData && state.Accuracy != nil {
		accuracy := metrics.NewAccuracyCard(*state.Accuracy)
		resp.Accuracy = &accuracy
	}
	return resp
}

func (h *handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	h.writeJSON(w, http.StatusOK, h.currentMetrics(r))
}

func (h *handler) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if !h.dashboard.State().HasData {
		h.writeJSON(w, http.StatusOK, recommendationResponse{})
		return
	}
	h.writeJSON(w, http.StatusOK, recommendationResponse{
		Available: true,
		Text:      h.assistant.Recommend(detached(r)),
	})
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleChat"
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, chatResponse{Transcript: h.assistant.Transcript()})
	case http.MethodPost:
		var req chatRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode message: %v", err), op)
			return
		}
		reply, err := h.assistant.Ask(detached(r), req.Message)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		h.writeJSON(w, http.StatusOK, chatResponse{Reply: reply, Transcript: h.assistant.Transcript()})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}
