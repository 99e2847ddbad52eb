package job_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/jungyuya/new-blog-sub000/features/job"
	"github.com/jungyuya/new-blog-sub000/internal/index"
)

func newMux(h *job.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs", h.List)
	mux.HandleFunc("POST /jobs/{id}/retry", h.Retry)
	mux.HandleFunc("DELETE /jobs/{id}", h.Delete)
	return mux
}

func TestHandler_List(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepo)
		handler := job.NewHandler(job.NewService(repo, new(MockPublisher)))

		repo.On("List", mock.Anything).Return([]job.Job{
			{ID: "job-1", PostID: "post-1", EventName: "INSERT", Error: "oops", CreatedAt: time.Now()},
		}, nil)

		w := httptest.NewRecorder()
		newMux(handler).ServeHTTP(w, httptest.NewRequest("GET", "/jobs", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		json.NewDecoder(w.Body).Decode(&body)
		assert.Len(t, body["data"], 1)
		meta := body["meta"].(map[string]interface{})
		assert.Equal(t, float64(1), meta["count"])
	})

	t.Run("Empty List Is Not Null", func(t *testing.T) {
		repo := new(MockRepo)
		handler := job.NewHandler(job.NewService(repo, new(MockPublisher)))

		repo.On("List", mock.Anything).Return([]job.Job(nil), nil)

		w := httptest.NewRecorder()
		newMux(handler).ServeHTTP(w, httptest.NewRequest("GET", "/jobs", nil))

		assert.JSONEq(t, `{"data": [], "meta": {"count": 0}}`, w.Body.String())
	})

	t.Run("RepoError", func(t *testing.T) {
		repo := new(MockRepo)
		handler := job.NewHandler(job.NewService(repo, new(MockPublisher)))

		repo.On("List", mock.Anything).Return(nil, errors.New("db down"))

		w := httptest.NewRecorder()
		newMux(handler).ServeHTTP(w, httptest.NewRequest("GET", "/jobs", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_Retry(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepo)
		pub := new(MockPublisher)
		handler := job.NewHandler(job.NewService(repo, pub))

		payload, _ := json.Marshal(index.ChangeRecord{EventName: "INSERT", NewImage: &index.PostImage{ID: "p"}})
		repo.On("Get", mock.Anything, "job-1").Return(&job.Job{ID: "job-1", Payload: payload}, nil)
		pub.On("Publish", mock.Anything, mock.Anything).Return(nil)
		repo.On("Delete", mock.Anything, "job-1").Return(nil)

		w := httptest.NewRecorder()
		newMux(handler).ServeHTTP(w, httptest.NewRequest("POST", "/jobs/job-1/retry", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo := new(MockRepo)
		handler := job.NewHandler(job.NewService(repo, new(MockPublisher)))

		repo.On("Get", mock.Anything, "nope").Return(nil, sql.ErrNoRows)

		w := httptest.NewRecorder()
		newMux(handler).ServeHTTP(w, httptest.NewRequest("POST", "/jobs/nope/retry", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandler_Delete(t *testing.T) {
	repo := new(MockRepo)
	handler := job.NewHandler(job.NewService(repo, new(MockPublisher)))

	repo.On("Delete", mock.Anything, "job-1").Return(nil)

	w := httptest.NewRecorder()
	newMux(handler).ServeHTTP(w, httptest.NewRequest("DELETE", "/jobs/job-1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
