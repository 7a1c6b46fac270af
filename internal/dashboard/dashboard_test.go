package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iwvelando/demand-dashboard/internal/forecast"
	"github.com/iwvelando/demand-dashboard/internal/predict"
	"github.com/iwvelando/demand-dashboard/internal/store"
	"github.com/iwvelando/demand-dashboard/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// predictorFunc adapts a function to Predictor.
type predictorFunc func(ctx context.Context, filename string, file io.Reader) (*forecast.Result, error)

func (f predictorFunc) Predict(ctx context.Context, filename string, file io.Reader) (*forecast.Result, error) {
	return f(ctx, filename, file)
}

func fixedPredictor(result *forecast.Result) Predictor {
	return predictorFunc(func(context.Context, string, io.Reader) (*forecast.Result, error) {
		return result, nil
	})
}

func TestUploadSuccess(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(nil)
	s := NewService(zap.NewNop(), fixedPredictor(testutil.SampleResult()), st)

	n, err := s.Upload(ctx, "demand.csv", strings.NewReader("ds,y\n"))
	require.NoError(t, err)
	assert.Equal(t, TitleReady, n.Title)
	assert.Equal(t, DescriptionReady, n.Description)
	assert.False(t, n.Destructive)

	state := s.State()
	assert.True(t, state.HasData)
	assert.False(t, state.IsUploading)
	require.NotNil(t, state.Accuracy)
	assert.Equal(t, 92.4, *state.Accuracy)
	assert.Equal(t, &n, state.LastNotification)

	cached, ok := st.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, testutil.SampleResult(), cached)
}

func TestUploadAccuracyFallback(t *testing.T) {
	s := NewService(nil, fixedPredictor(&forecast.Result{}), store.NewMemoryStore(nil))
	_, err := s.Upload(context.Background(), "demand.csv", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 88.0, *s.State().Accuracy)
}

func TestUploadBackendErrorKeepsCache(t *testing.T) {
	ctx := context.Background()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer backend.Close()

	st := store.NewMemoryStore(nil)
	previous := testutil.SampleResult()
	require.NoError(t, st.Save(ctx, previous))

	client := predict.NewClient(nil, predict.Config{BaseURL: backend.URL})
	s := NewService(nil, client, st)
	require.True(t, s.Restore(ctx))

	n, err := s.Upload(ctx, "demand.csv", strings.NewReader("ds,y\n"))
	require.Error(t, err)
	var statusErr *predict.StatusError
	require.True(t, errors.As(err, &statusErr))

	assert.Equal(t, TitleFailed, n.Title)
	assert.True(t, n.Destructive)
	assert.Contains(t, n.Description, "500")

	cached, ok := st.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, previous, cached)
	assert.True(t, s.State().HasData)
	assert.False(t, s.State().IsUploading)
}

func TestUploadUnreachable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	s := NewService(nil, predict.NewClient(nil, predict.Config{BaseURL: url}), store.NewMemoryStore(nil))
	n, err := s.Upload(context.Background(), "demand.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, n.Description, "backend not reachable")
	assert.False(t, s.State().HasData)
}

func TestBusyFlagOnlyDuringUpload(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	predictor := predictorFunc(func(context.Context, string, io.Reader) (*forecast.Result, error) {
		close(started)
		<-release
		return testutil.SampleResult(), nil
	})

	s := NewService(nil, predictor, store.NewMemoryStore(nil))
	s.Select(FileInfo{Name: "demand.csv", Size: 12})
	assert.False(t, s.State().IsUploading)

	done := make(chan error, 1)
	go func() {
		_, err := s.Upload(context.Background(), "demand.csv", strings.NewReader(""))
		done <- err
	}()

	<-started
	state := s.State()
	assert.True(t, state.IsUploading)
	require.NotNil(t, state.LastNotification)
	assert.Equal(t, TitleAnalyzing, state.LastNotification.Title)

	_, err := s.Upload(context.Background(), "other.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUploadInProgress)

	close(release)
	require.NoError(t, <-done)

	state = s.State()
	assert.False(t, state.IsUploading)
	assert.Nil(t, state.SelectedFile)
}

func TestRejectedUploadKeepsRunningSelection(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	predictor := predictorFunc(func(context.Context, string, io.Reader) (*forecast.Result, error) {
		close(started)
		<-release
		return testutil.SampleResult(), nil
	})
	s := NewService(nil, predictor, store.NewMemoryStore(nil))

	done := make(chan error, 1)
	go func() {
		_, err := s.UploadFile(context.Background(), FileInfo{Name: "first.csv", Size: 12}, strings.NewReader(""))
		done <- err
	}()
	<-started

	state := s.State()
	require.NotNil(t, state.SelectedFile)
	assert.Equal(t, "first.csv", state.SelectedFile.Name)

	_, err := s.UploadFile(context.Background(), FileInfo{Name: "second.csv", Size: 40}, strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUploadInProgress)

	state = s.State()
	require.NotNil(t, state.SelectedFile)
	assert.Equal(t, "first.csv", state.SelectedFile.Name)
	assert.Equal(t, int64(12), state.SelectedFile.Size)
	require.NotNil(t, state.LastNotification)
	assert.Equal(t, TitleAnalyzing, state.LastNotification.Title)

	close(release)
	require.NoError(t, <-done)
	assert.Nil(t, s.State().SelectedFile)
	assert.Equal(t, TitleReady, s.State().LastNotification.Title)
}

func TestBusyFlagClearedAfterFailure(t *testing.T) {
	predictor := predictorFunc(func(context.Context, string, io.Reader) (*forecast.Result, error) {
		return nil, errors.New("backend not reachable: connection refused")
	})
	s := NewService(nil, predictor, store.NewMemoryStore(nil))

	_, err := s.Upload(context.Background(), "demand.csv", strings.NewReader(""))
	require.Error(t, err)
	assert.False(t, s.State().IsUploading)

	_, err = s.Upload(context.Background(), "demand.csv", strings.NewReader(""))
	assert.NotErrorIs(t, err, ErrUploadInProgress)
}

func TestSelect(t *testing.T) {
	s := NewService(nil, fixedPredictor(nil), store.NewMemoryStore(nil))
	n := s.Select(FileInfo{Name: "weekly.csv", Size: 2048})

	assert.Equal(t, TitleFileSelected, n.Title)
	assert.Equal(t, "weekly.csv is ready to upload", n.Description)
	require.NotNil(t, s.State().SelectedFile)
	assert.Equal(t, "weekly.csv", s.State().SelectedFile.Name)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(nil)
	s := NewService(nil, fixedPredictor(testutil.SampleResult()), st)

	_, err := s.Upload(ctx, "demand.csv", strings.NewReader(""))
	require.NoError(t, err)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, TitleCleared, n.Title)
	assert.Equal(t, DescriptionCleared, n.Description)

	state := s.State()
	assert.False(t, state.HasData)
	assert.Nil(t, state.Accuracy)
	_, ok := st.Load(ctx)
	assert.False(t, ok)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(nil)
	s := NewService(nil, fixedPredictor(nil), st)
	assert.False(t, s.Restore(ctx))
	assert.False(t, s.State().HasData)

	st.SetRaw([]byte("{broken"))
	assert.False(t, s.Restore(ctx))

	require.NoError(t, st.Save(ctx, &forecast.Result{ModelAccuracy: forecast.Ptr(0)}))
	assert.True(t, s.Restore(ctx))
	assert.True(t, s.State().HasData)
	assert.Equal(t, 88.0, *s.State().Accuracy)
}
