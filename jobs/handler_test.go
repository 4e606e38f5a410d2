package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	snapshots int
	recosts   int
	err       error
}

func (f *fakeEnqueuer) EnqueueFXSnapshot(ctx context.Context) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.snapshots++
	return &asynq.TaskInfo{ID: "task-fx-1", Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) EnqueueRecost(ctx context.Context) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.recosts++
	return &asynq.TaskInfo{ID: "task-recost-1", Queue: QueueDefault}, nil
}

func newJobsRouter(client Enqueuer) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewHandler(nil, client, logger).MountRoutes(r)
	return r
}

func TestRunRecostEnqueuesTask(t *testing.T) {
	client := &fakeEnqueuer{}
	router := newJobsRouter(client)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/recost", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, 1, client.recosts)
	require.Contains(t, rr.Body.String(), TaskRecost)
	require.Contains(t, rr.Body.String(), "task-recost-1")
}

func TestRunFXSnapshotEnqueuesTask(t *testing.T) {
	client := &fakeEnqueuer{}
	router := newJobsRouter(client)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/fx-snapshot", nil))

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, 1, client.snapshots)
	require.Contains(t, rr.Body.String(), TaskFXSnapshot)
}

func TestRunRecostReportsQueueOutage(t *testing.T) {
	router := newJobsRouter(&fakeEnqueuer{err: errors.New("redis down")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/recost", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRunRecostWithoutClient(t *testing.T) {
	router := newJobsRouter(nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/recost", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
