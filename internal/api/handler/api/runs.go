package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/sextant/internal/api/response"
	"github.com/newthinker/sextant/internal/core"
	"github.com/newthinker/sextant/internal/storage/run"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// RunsHandler serves stored backtest runs.
type RunsHandler struct {
	store run.Store
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store run.Store) *RunsHandler {
	return &RunsHandler{store: store}
}

// List returns run summaries, newest first, without equity curves.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := run.ListFilter{
		Symbol: strings.ToUpper(strings.TrimSpace(q.Get("symbol"))),
	}
	var err error
	if filter.Limit, err = intQuery(q.Get("limit"), defaultRunLimit); err != nil {
		response.Fail(w, err)
		return
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultRunLimit
	case filter.Limit > maxRunLimit:
		filter.Limit = maxRunLimit
	}
	if filter.Offset, err = intQuery(q.Get("offset"), 0); err != nil {
		response.Fail(w, err)
		return
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	runs, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), filter)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if runs == nil {
		runs = []run.Record{}
	}

	response.Page(w, runs, total, filter.Limit, filter.Offset)
}

// Get returns one full run including its equity curve.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rec)
}

// Delete removes a run.
func (h *RunsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func intQuery(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.WrapError(core.ErrBadRequest, fmt.Errorf("%q is not an integer", raw))
	}
	return n, nil
}
