// Package dashboard holds the upload lifecycle and the state shown on the
// main page: whether data is cached, whether an upload is running, the
// model accuracy and the most recent notification.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/iwvelando/demand-dashboard/internal/metrics"
	"github.com/iwvelando/demand-dashboard/internal/predict"
	"github.com/iwvelando/demand-dashboard/internal/store"
	"go.uber.org/zap"
)

// ErrUploadInProgress is returned when an upload is started while another is
// still running.
var ErrUploadInProgress = errors.New("an upload is already in progress")

// Notification titles.
const (
	TitleFileSelected = "File selected"
	TitleAnalyzing    = "Analyzing data..."
	TitleReady        = "Forecast Ready!"
	TitleFailed       = "Upload Failed"
	TitleCleared      = "Cleared Data"
)

// Notification descriptions that do not depend on input.
const (
	DescriptionAnalyzing   = "AI is processing your inventory data"
	DescriptionReady       = "AI analysis complete and saved locally."
	DescriptionUnreachable = "Backend not reachable."
	DescriptionCleared     = "Local forecast data removed."
)

// Notification is a transient message for the user.
type Notification struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Destructive bool      `json:"destructive,omitempty"`
	Time        time.Time `json:"time"`
}

// FileInfo describes the file picked for upload.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// State is a snapshot of the dashboard.
type State struct {
	HasData          bool          `json:"hasData"`
	IsUploading      bool          `json:"isUploading"`
	Accuracy         *float64      `json:"accuracy"`
	SelectedFile     *FileInfo     `json:"selectedFile,omitempty"`
	LastNotification *Notification `json:"lastNotification,omitempty"`
}

// Predictor turns an uploaded file into a forecast.
type Predictor interface {
	Predict(ctx context.Context, filename string, file io.Reader) (*forecast.Result, error)
}

// Service coordinates uploads against the forecast cache.
type Service struct {
	predictor Predictor
	store     store.Store
	logger    *zap.Logger
	now       func() time.Time

	uploading atomic.Bool

	mu           sync.Mutex
	hasData      bool
	accuracy     *float64
	selected     *FileInfo
	notification *Notification
}

// NewService creates a Service. Call Restore to pick up a cached forecast.
func NewService(logger *zap.Logger, predictor Predictor, st store.Store) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		predictor: predictor,
		store:     st,
		logger:    logger,
		now:       time.Now,
	}
}

// State returns a copy of the current dashboard state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		HasData:     s.hasData,
		IsUploading: s.uploading.Load(),
	}
	if s.accuracy != nil {
		v := *s.accuracy
		state.Accuracy = &v
	}
	if s.selected != nil {
		f := *s.selected
		state.SelectedFile = &f
	}
	if s.notification != nil {
		n := *s.notification
		state.LastNotification = &n
	}
	return state
}

// Restore loads the cached forecast, if any, into the dashboard state.
func (s *Service) Restore(ctx context.Context) bool {
	result, ok := s.store.Load(ctx)
	if !ok {
		return false
	}
	accuracy := metrics.Accuracy(result)

	s.mu.Lock()
	s.hasData = true
	s.accuracy = &accuracy
	s.mu.Unlock()

	s.logger.Info("restored cached forecast",
		zap.String("op", "dashboard.Restore"),
		zap.Float64("accuracy", accuracy),
	)
	return true
}

// Select records the file picked for upload.
func (s *Service) Select(file FileInfo) Notification {
	n := s.notify(TitleFileSelected, file.Name+" is ready to upload", false)

	s.mu.Lock()
	s.selected = &file
	s.mu.Unlock()
	return n
}

// Upload sends the file to the prediction backend and caches the result. On
// failure the cache is left untouched and the returned notification carries
// the error. ErrUploadInProgress is returned without contacting the backend
// when another upload is running.
func (s *Service) Upload(ctx context.Context, filename string, file io.Reader) (Notification, error) {
	return s.upload(ctx, filename, file, nil)
}

// UploadFile is Upload for a file that has not been selected yet. The file is
// recorded as selected only once the upload owns the busy flag, so a rejected
// upload leaves the running one's state alone.
func (s *Service) UploadFile(ctx context.Context, info FileInfo, file io.Reader) (Notification, error) {
	return s.upload(ctx, info.Name, file, &info)
}

func (s *Service) upload(ctx context.Context, filename string, file io.Reader, info *FileInfo) (Notification, error) {
	if !s.uploading.CompareAndSwap(false, true) {
		return Notification{}, ErrUploadInProgress
	}
	if info != nil {
		s.Select(*info)
	}
	defer func() {
		s.mu.Lock()
		s.selected = nil
		s.mu.Unlock()
		s.uploading.Store(false)
	}()

	requestID := uuid.NewString()
	logger := s.logger.With(
		zap.String("op", "dashboard.Upload"),
		zap.String("request_id", requestID),
		zap.String("filename", filename),
	)
	logger.Info("upload started")
	s.notify(TitleAnalyzing, DescriptionAnalyzing, false)

	result, err := s.predictor.Predict(ctx, filename, file)
	if err != nil {
		logger.Error("prediction failed", zap.Error(err))
		return s.notify(TitleFailed, failureDescription(err), true), err
	}

	if err := s.store.Save(ctx, result); err != nil {
		logger.Error("failed to cache forecast", zap.Error(err))
		return s.notify(TitleFailed, err.Error(), true), fmt.Errorf("failed to cache forecast: %w", err)
	}

	accuracy := metrics.Accuracy(result)
	s.mu.Lock()
	s.hasData = true
	s.accuracy = &accuracy
	s.mu.Unlock()

	logger.Info("upload complete", zap.Float64("accuracy", accuracy))
	return s.notify(TitleReady, DescriptionReady, false), nil
}

// failureDescription picks the message shown for a failed upload.
func failureDescription(err error) string {
	var statusErr *predict.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DescriptionUnreachable
}

// Clear removes the cached forecast and resets the dashboard.
func (s *Service) Clear(ctx context.Context) (Notification, error) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("failed to clear forecast cache",
			zap.String("op", "dashboard.Clear"),
			zap.Error(err),
		)
		return Notification{}, err
	}

	s.mu.Lock()
	s.hasData = false
	s.accuracy = nil
	s.mu.Unlock()

	return s.notify(TitleCleared, DescriptionCleared, false), nil
}

// Result returns the cached forecast.
func (s *Service) Result(ctx context.Context) (*forecast.Result, bool) {
	return s.store.Load(ctx)
}

func (s *Service) notify(title, description string, destructive bool) Notification {
	n := Notification{
		Title:       title,
		Description: description,
		Destructive: destructive,
		Time:        s.now(),
	}
	s.mu.Lock()
	s.notification = &n
	s.mu.Unlock()
	return n
}
