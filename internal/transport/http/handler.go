package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"research-job-service/internal/entity"
	"research-job-service/internal/logging"
	"research-job-service/internal/service"
)

type Handler struct {
	jobSvc *service.JobService
	log    *zerolog.Logger
}

func NewHandler(jobSvc *service.JobService, log *zerolog.Logger) *Handler {
	return &Handler{jobSvc: jobSvc, log: logging.OrNop(log)}
}

type submitJobDTO struct {
	Topics []string `json:"topics" example:"quantum computing,fusion energy"`
}

type submitJobResp struct {
	JobID  string           `json:"job_id"`
	Status entity.JobStatus `json:"status"`
}

type jobResp struct {
	ID        string           `json:"id"`
	Owner     string           `json:"owner"`
	Topics    []string         `json:"topics"`
	Status    entity.JobStatus `json:"status"`
	Result    *entity.Result   `json:"result,omitempty"`
	Error     *string          `json:"error,omitempty"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

func toJobResp(j *entity.Job) jobResp {
	return jobResp{
		ID:        j.ID.String(),
		Owner:     j.Owner,
		Topics:    j.Topics,
		Status:    j.Status,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: j.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// SubmitJob godoc
// @Summary Submit a research job
// @Description Stores the job as pending and schedules it for background execution. Returns immediately.
// @Tags jobs
// @Accept json
// @Produce json
// @Security OwnerHeader
// @Param request body submitJobDTO true "topics to research, in report order"
// @Success 202 {object} submitJobResp
// @Failure 400 {object} apiError
// @Failure 401 {object} apiError
// @Failure 500 {object} apiError
// @Router /jobs [post]
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var dto submitJobDTO
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	job, err := h.jobSvc.Submit(r.Context(), service.SubmitRequest{
		Owner:  ownerFrom(r.Context()),
		Topics: dto.Topics,
	})
	if err != nil {
		writeServiceErr(w, h.log, err)
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, submitJobResp{JobID: job.ID.String(), Status: job.Status})
}

// GetJob godoc
// @Summary Get job by id
// @Description Returns the current record; result is set only when completed, error only when failed.
// @Tags jobs
// @Produce json
// @Security OwnerHeader
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 401 {object} apiError
// @Failure 404 {object} apiError
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id, ownerFrom(r.Context()))
	if err != nil {
		writeServiceErr(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(j))
}

// ListJobs godoc
// @Summary List the caller's jobs
// @Description Newest first.
// @Tags jobs
// @Produce json
// @Security OwnerHeader
// @Success 200 {array} jobResp
// @Failure 401 {object} apiError
// @Router /jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobSvc.ListJobs(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeServiceErr(w, h.log, err)
		return
	}

	out := make([]jobResp, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResp(j))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetJobReport godoc
// @Summary Get the markdown report of a completed job
// @Tags jobs
// @Produce text/markdown
// @Security OwnerHeader
// @Param id path string true "job id (uuid)"
// @Success 200 {string} string
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /jobs/{id}/report [get]
func (h *Handler) GetJobReport(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	j, err := h.jobSvc.GetJob(r.Context(), id, ownerFrom(r.Context()))
	if err != nil {
		writeServiceErr(w, h.log, err)
		return
	}
	if j.Status != entity.StatusCompleted || j.Result == nil {
		writeErr(w, http.StatusConflict, "job is "+string(j.Status)+", report not available")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(j.Result.Artifact.Markdown))
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
