package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/sextant/internal/core"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"hello": "world"}

	JSON(w, http.StatusOK, data)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected application/json content type")
	}

	var resp SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data == nil {
		t.Error("expected data in response")
	}
	if resp.Meta.Timestamp.IsZero() {
		t.Error("expected timestamp in meta")
	}
	if resp.Meta.Total != nil {
		t.Error("expected no total outside listings")
	}
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()

	Page(w, []int{1, 2}, 7, 2, 4)

	var resp SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Meta.Total == nil || *resp.Meta.Total != 7 {
		t.Errorf("expected total 7, got %v", resp.Meta.Total)
	}
	if resp.Meta.Limit != 2 || resp.Meta.Offset != 4 {
		t.Errorf("expected limit 2 offset 4, got %d %d", resp.Meta.Limit, resp.Meta.Offset)
	}
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()
	err := core.ErrConfigInvalid

	Error(w, http.StatusBadRequest, err)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "CONFIG_INVALID" {
		t.Errorf("expected CONFIG_INVALID, got %s", resp.Error.Code)
	}
}

func TestError_WithCause(t *testing.T) {
	w := httptest.NewRecorder()
	err := core.WrapError(core.ErrNoData, errors.New("BTCUSDT 1h"))

	Error(w, http.StatusNotFound, err)

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "NO_DATA" {
		t.Errorf("expected NO_DATA, got %s", resp.Error.Code)
	}
	if resp.Error.Cause != "BTCUSDT 1h" {
		t.Errorf("expected cause, got %q", resp.Error.Cause)
	}
}

func TestError_PlainErrorHidden(t *testing.T) {
	w := httptest.NewRecorder()

	Fail(w, errors.New("db password is hunter2"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error.Code != "INTERNAL_ERROR" || resp.Error.Cause != "" {
		t.Errorf("unexpected detail %+v", resp.Error)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.WrapError(core.ErrInvalidParams, errors.New("x")), http.StatusBadRequest},
		{core.ErrInsufficientData, http.StatusBadRequest},
		{core.ErrDataQuality, http.StatusBadRequest},
		{core.ErrNoData, http.StatusBadRequest},
		{core.ErrCompareInput, http.StatusBadRequest},
		{fmt.Errorf("combination 2: %w", core.ErrInvalidParams), http.StatusBadRequest},
		{core.ErrRunNotFound, http.StatusNotFound},
		{core.ErrJobNotFound, http.StatusNotFound},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrJobLimit, http.StatusTooManyRequests},
		{core.WrapError(core.ErrCollectorFailed, errors.New("timeout")), http.StatusBadGateway},
		{core.ErrStorageFailed, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := Status(tt.err); got != tt.want {
			t.Errorf("Status(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
