package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/eugenenazirov/deployconf/internal/chaincheck"
	"github.com/eugenenazirov/deployconf/internal/render"
	"github.com/eugenenazirov/deployconf/internal/resolver"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Prober checks a record against its live RPC endpoint.
type Prober interface {
	Probe(ctx context.Context, rec resolver.Record) (chaincheck.Report, error)
}

// Handler serves a resolved record read-only. The record and findings are
// fixed at construction, so handlers share them without locking.
type Handler struct {
	record   resolver.Record
	redacted resolver.Record
	findings []chaincheck.Finding
	prober   Prober

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithProber enables live checks on GET /api/check?live=true.
func WithProber(prober Prober) HandlerOption {
	return func(h *Handler) {
		h.prober = prober
	}
}

// WithFindings sets the offline inspection results reported by GET /api/check.
func WithFindings(findings []chaincheck.Finding) HandlerOption {
	return func(h *Handler) {
		h.findings = findings
	}
}

// NewHandler constructs a Handler serving rec.
func NewHandler(rec resolver.Record, opts ...HandlerOption) *Handler {
	h := &Handler{
		record:   rec,
		redacted: rec.Redacted(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.findings == nil {
		h.findings = []chaincheck.Finding{}
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, h.redacted)
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	switch view := r.PathValue("view"); view {
	case "deployment":
		writeJSON(w, http.StatusOK, h.redacted.Deployment())
	case "verification":
		writeJSON(w, http.StatusOK, h.redacted.Verification())
	case "typechain":
		writeJSON(w, http.StatusOK, h.redacted.TypeBindings())
	default:
		writeError(w, http.StatusNotFound, "Unknown view", "view must be one of deployment, verification, typechain")
	}
}

func (h *Handler) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid format", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, h.record, format, render.Options{}); err != nil {
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	resp := checkResponse{Findings: h.findings}

	live, _ := strconv.ParseBool(r.URL.Query().Get("live"))
	if !live {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if h.prober == nil {
		writeError(w, http.StatusNotImplemented, "Live check unavailable", "no prober configured")
		return
	}

	// Probes need the unredacted keys to derive account addresses.
	report, err := h.prober.Probe(r.Context(), h.record)
	if err != nil {
		switch {
		case errors.Is(err, chaincheck.ErrChainIDMismatch):
			resp.Report = &report
			resp.Error = err.Error()
			writeJSON(w, http.StatusUnprocessableEntity, resp)
		default:
			suggestion := "Check that " + resolver.EnvRPCURL + " points at a reachable JSON-RPC endpoint"
			writeError(w, http.StatusBadGateway, "RPC endpoint unavailable", err.Error(), suggestion)
		}
		return
	}

	resp.Report = &report
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type checkResponse struct {
	Findings []chaincheck.Finding `json:"findings"`
	Report   *chaincheck.Report   `json:"report,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
