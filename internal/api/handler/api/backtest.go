// Package api implements the JSON handlers of the v1 HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/sextant/internal/api/job"
	"github.com/newthinker/sextant/internal/api/response"
	"github.com/newthinker/sextant/internal/app"
	"github.com/newthinker/sextant/internal/backtest"
	"github.com/newthinker/sextant/internal/compare"
	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/metrics"
	"github.com/newthinker/sextant/internal/storage/run"
)

const (
	jobTimeout = 10 * time.Minute

	JobTypeBacktest = "backtest"
	JobTypeSweep    = "sweep"
)

// Service runs and compares backtests.
type Service interface {
	Execute(ctx context.Context, req app.RunRequest) (*run.Record, error)
	Sweep(ctx context.Context, req app.SweepRequest) (*app.SweepResult, error)
	Compare(ctx context.Context, ids []string) (*compare.Comparison, error)
}

// BacktestRequest is the request body for starting a backtest. Params
// overrides the configured defaults key by key.
type BacktestRequest struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params,omitempty"`
	End    string          `json:"end,omitempty"`
	Save   *bool           `json:"save,omitempty"`
}

// SweepRequest is the request body for starting a parameter sweep. Each
// vary entry looks like "rsi_oversold=25,30,35".
type SweepRequest struct {
	Name    string          `json:"name"`
	Base    json.RawMessage `json:"base,omitempty"`
	Vary    []string        `json:"vary"`
	End     string          `json:"end,omitempty"`
	Save    *bool           `json:"save,omitempty"`
	Workers int             `json:"workers,omitempty"`
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobs     *job.Store
	svc      Service
	defaults backtest.Params
	metrics  *metrics.Registry
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewBacktestHandler creates a new backtest handler. metrics may be nil.
func NewBacktestHandler(
	jobs *job.Store,
	svc Service,
	defaults backtest.Params,
	reg *metrics.Registry,
	logger *zap.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		jobs:     jobs,
		svc:      svc,
		defaults: defaults,
		metrics:  reg,
		logger:   logger,
	}
}

// Create starts a new backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := decodeBody(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	params, err := h.params(req.Params)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := params.Validate(); err != nil {
		response.Fail(w, err)
		return
	}
	end, err := parseEnd(req.End)
	if err != nil {
		response.Fail(w, err)
		return
	}

	runReq := app.RunRequest{
		Name:   req.Name,
		Params: params,
		End:    end,
		Save:   saveOf(req.Save),
	}
	h.start(w, r, JobTypeBacktest, func(ctx context.Context) (any, error) {
		return h.svc.Execute(ctx, runReq)
	})
}

// CreateSweep starts a new parameter sweep job.
func (h *BacktestHandler) CreateSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := decodeBody(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	base, err := h.params(req.Base)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if len(req.Vary) == 0 {
		response.Fail(w, core.WrapError(core.ErrInvalidParams, errors.New("vary must name at least one parameter")))
		return
	}
	vary := make([]backtest.Variation, 0, len(req.Vary))
	for _, raw := range req.Vary {
		v, err := backtest.ParseVariation(raw)
		if err != nil {
			response.Fail(w, err)
			return
		}
		vary = append(vary, v)
	}
	// reject a bad grid now rather than in a failed job
	if _, err := backtest.Grid(base, vary); err != nil {
		response.Fail(w, err)
		return
	}
	end, err := parseEnd(req.End)
	if err != nil {
		response.Fail(w, err)
		return
	}

	sweepReq := app.SweepRequest{
		Name:    req.Name,
		Base:    base,
		Vary:    vary,
		End:     end,
		Save:    saveOf(req.Save),
		Workers: req.Workers,
	}
	h.start(w, r, JobTypeSweep, func(ctx context.Context) (any, error) {
		return h.svc.Sweep(ctx, sweepReq)
	})
}

// GetJob returns the status of a job, with its result once complete.
func (h *BacktestHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// ListJobs handles GET /api/v1/jobs. Results are left out; fetch a single
// job for its record.
func (h *BacktestHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.jobs.List()
	for i := range jobs {
		jobs[i].Result = nil
	}
	response.Page(w, jobs, len(jobs), len(jobs), 0)
}

// Wait blocks until every job started by this handler has finished or ctx
// is done.
func (h *BacktestHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *BacktestHandler) start(w http.ResponseWriter, r *http.Request, jobType string, work func(ctx context.Context) (any, error)) {
	j, err := h.jobs.Create(jobType)
	if err != nil {
		response.Fail(w, err)
		return
	}
	h.reportActive(jobType)

	logger := h.logger.With(
		zap.String("job_id", j.ID),
		zap.String("type", jobType),
		zap.String("request_id", metrics.RequestID(r.Context())),
	)
	logger.Debug("job queued")

	h.wg.Add(1)
	go h.run(j.ID, jobType, logger, work)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// run executes work and records its outcome on the job.
func (h *BacktestHandler) run(jobID, jobType string, logger *zap.Logger, work func(ctx context.Context) (any, error)) {
	defer h.wg.Done()
	defer h.reportActive(jobType)

	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	result, err := work(ctx)

	if err != nil {
		logger.Warn("job failed", zap.Error(err))
		h.jobs.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	logger.Info("job complete")
	h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = result
	})
}

func (h *BacktestHandler) reportActive(jobType string) {
	if h.metrics != nil {
		h.metrics.SetJobsActive(jobType, h.jobs.Active(jobType))
	}
}

// params applies raw JSON overrides on top of the defaults. Unknown keys
// are rejected.
func (h *BacktestHandler) params(raw json.RawMessage) (backtest.Params, error) {
	p := h.defaults.Clone()
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return backtest.Params{}, core.WrapError(core.ErrInvalidParams, err)
	}
	return p, nil
}

// decodeBody decodes a JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return core.WrapError(core.ErrBadRequest, err)
	}
	return nil
}

// parseEnd accepts RFC3339 or a bare date; empty means now.
func parseEnd(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, core.WrapError(core.ErrBadRequest, fmt.Errorf("end %q is neither RFC3339 nor YYYY-MM-DD", s))
}

func saveOf(b *bool) bool {
	return b == nil || *b
}

func asCoreError(err error) *core.Error {
	var coded *core.Error
	if errors.As(err, &coded) {
		return coded
	}
	return core.WrapError(core.ErrRunFailed, err)
}
