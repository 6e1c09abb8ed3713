package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-job-service/internal/entity"
	"research-job-service/internal/repository/memory"
	"research-job-service/internal/service"
	httptransport "research-job-service/internal/transport/http"
)

// ---- fakes ----

type dispatcherStub struct {
	ids []uuid.UUID
	err error
}

func (d *dispatcherStub) Dispatch(_ context.Context, id uuid.UUID) error {
	d.ids = append(d.ids, id)
	return d.err
}

// ---- helpers ----

func newTestRouter(repo service.JobRepository, disp service.Dispatcher, secret string) http.Handler {
	svc := service.NewJobService(repo, disp, service.Options{}, nil)
	h := httptransport.NewHandler(svc, nil)
	return httptransport.Routes(h, httptransport.RouteOptions{JWTSecret: secret})
}

func do(t *testing.T, router http.Handler, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set(httptransport.OwnerHeader, owner)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func seed(t *testing.T, repo *memory.JobRepository, owner string, status entity.JobStatus) *entity.Job {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	j := &entity.Job{ID: uuid.New(), Owner: owner, Topics: []string{"A", "B"}, Status: entity.StatusPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, j))
	if status == entity.StatusPending {
		return j
	}
	_, err := repo.Update(ctx, j.ID, entity.StatusPending, entity.JobUpdate{Status: entity.StatusProcessing})
	require.NoError(t, err)
	switch status {
	case entity.StatusCompleted:
		res := &entity.Result{Artifact: entity.Artifact{Markdown: "# Research Report\n\n## Overview\n"}}
		_, err = repo.Update(ctx, j.ID, entity.StatusProcessing, entity.JobUpdate{Status: entity.StatusCompleted, Result: res})
	case entity.StatusFailed:
		msg := "research failed for all 2 topics"
		_, err = repo.Update(ctx, j.ID, entity.StatusProcessing, entity.JobUpdate{Status: entity.StatusFailed, Error: &msg})
	}
	require.NoError(t, err)
	return j
}

// ---- tests ----

func TestHTTP_SubmitJob_202_PendingAndDispatched(t *testing.T) {
	repo := memory.NewJobRepository()
	disp := &dispatcherStub{}
	router := newTestRouter(repo, disp, "")

	rr := do(t, router, http.MethodPost, "/jobs", "alice", `{"topics":["quantum computing","fusion"]}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Status)
	id, err := uuid.Parse(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, disp.ids)
	assert.Equal(t, "/jobs/"+id.String(), rr.Header().Get("Location"))

	rr = do(t, router, http.MethodGet, "/jobs/"+id.String(), "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "pending", got["status"])
	assert.Equal(t, "alice", got["owner"])
	assert.Equal(t, []any{"quantum computing", "fusion"}, got["topics"])
	assert.NotContains(t, got, "result")
	assert.NotContains(t, got, "error")
}

func TestHTTP_SubmitJob_400(t *testing.T) {
	for name, body := range map[string]string{
		"empty topics": `{"topics":[]}`,
		"no topics":    `{}`,
		"blank topic":  `{"topics":["  "]}`,
		"bad json":     `{"topics":`,
	} {
		t.Run(name, func(t *testing.T) {
			repo := memory.NewJobRepository()
			disp := &dispatcherStub{}
			router := newTestRouter(repo, disp, "")

			rr := do(t, router, http.MethodPost, "/jobs", "alice", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Empty(t, disp.ids)

			jobs, err := repo.List(context.Background(), "alice")
			require.NoError(t, err)
			assert.Empty(t, jobs, "no record is created for rejected submissions")
		})
	}
}

func TestHTTP_SubmitJob_500_WhenDispatchFails(t *testing.T) {
	repo := memory.NewJobRepository()
	router := newTestRouter(repo, &dispatcherStub{err: errors.New("queue down")}, "")

	rr := do(t, router, http.MethodPost, "/jobs", "alice", `{"topics":["A"]}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "could not schedule job execution")
	assert.NotContains(t, rr.Body.String(), "queue down")
}

func TestHTTP_401_WithoutIdentity(t *testing.T) {
	router := newTestRouter(memory.NewJobRepository(), &dispatcherStub{}, "")

	rr := do(t, router, http.MethodPost, "/jobs", "", `{"topics":["A"]}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodGet, "/jobs", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHTTP_GetJob_404_UnknownOrForeign(t *testing.T) {
	repo := memory.NewJobRepository()
	router := newTestRouter(repo, &dispatcherStub{}, "")
	j := seed(t, repo, "alice", entity.StatusPending)

	rr := do(t, router, http.MethodGet, "/jobs/"+uuid.NewString(), "alice", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodGet, "/jobs/"+j.ID.String(), "mallory", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, router, http.MethodGet, "/jobs/not-a-uuid", "alice", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHTTP_GetJob_FailedCarriesErrorOnly(t *testing.T) {
	repo := memory.NewJobRepository()
	router := newTestRouter(repo, &dispatcherStub{}, "")
	j := seed(t, repo, "alice", entity.StatusFailed)

	rr := do(t, router, http.MethodGet, "/jobs/"+j.ID.String(), "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "failed", got["status"])
	assert.Equal(t, "research failed for all 2 topics", got["error"])
	assert.NotContains(t, got, "result")
}

func TestHTTP_ListJobs_NewestFirstOwnerOnly(t *testing.T) {
	repo := memory.NewJobRepository()
	router := newTestRouter(repo, &dispatcherStub{}, "")

	older := seed(t, repo, "alice", entity.StatusCompleted)
	time.Sleep(2 * time.Millisecond)
	newer := seed(t, repo, "alice", entity.StatusPending)
	seed(t, repo, "bob", entity.StatusPending)

	rr := do(t, router, http.MethodGet, "/jobs", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID.String(), got[0].ID)
	assert.Equal(t, older.ID.String(), got[1].ID)
	assert.Equal(t, "completed", got[1].Status)

	rr = do(t, router, http.MethodGet, "/jobs", "carol", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestHTTP_GetJobReport(t *testing.T) {
	repo := memory.NewJobRepository()
	router := newTestRouter(repo, &dispatcherStub{}, "")

	running := seed(t, repo, "alice", entity.StatusProcessing)
	rr := do(t, router, http.MethodGet, "/jobs/"+running.ID.String()+"/report", "alice", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	done := seed(t, repo, "alice", entity.StatusCompleted)
	rr = do(t, router, http.MethodGet, "/jobs/"+done.ID.String()+"/report", "alice", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "# Research Report\n\n## Overview\n", rr.Body.String())
}

func TestHTTP_BearerIdentity(t *testing.T) {
	const secret = "test-secret"
	repo := memory.NewJobRepository()
	router := newTestRouter(repo, &dispatcherStub{}, secret)
	j := seed(t, repo, "user-42", entity.StatusPending)

	sign := func(sub, key string, method jwt.SigningMethod) string {
		tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		s, err := tok.SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}
	get := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/jobs/"+j.ID.String(), nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		// the owner header is ignored once tokens are required
		req.Header.Set(httptransport.OwnerHeader, "user-42")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, get(sign("user-42", secret, jwt.SigningMethodHS256)))
	assert.Equal(t, http.StatusNotFound, get(sign("someone-else", secret, jwt.SigningMethodHS256)))
	assert.Equal(t, http.StatusUnauthorized, get(sign("user-42", "wrong", jwt.SigningMethodHS256)))
	assert.Equal(t, http.StatusUnauthorized, get(sign("user-42", secret, jwt.SigningMethodHS512)))
	assert.Equal(t, http.StatusUnauthorized, get(""))
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	router := newTestRouter(memory.NewJobRepository(), &dispatcherStub{}, "")

	rr := do(t, router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	rr = do(t, router, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
