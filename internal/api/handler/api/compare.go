package api

import (
	"net/http"

	"github.com/newthinker/sextant/internal/api/response"
)

// CompareRequest lists the stored runs to compare.
type CompareRequest struct {
	IDs []string `json:"ids"`
}

// CompareHandler compares stored runs.
type CompareHandler struct {
	svc Service
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(svc Service) *CompareHandler {
	return &CompareHandler{svc: svc}
}

// Compare returns the side-by-side comparison of the requested runs.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := decodeBody(r, &req); err != nil {
		response.Fail(w, err)
		return
	}

	cmp, err := h.svc.Compare(r.Context(), req.IDs)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, cmp)
}
