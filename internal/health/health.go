// Package health provides HTTP liveness and readiness handlers for the
// translator's status listener.
//
//   - /healthz — liveness; returns 200 with the current session state.
//   - /readyz  — readiness; returns 200 only when every registered
//     [Checker] passes (loopback device present, provider reachable).
//
// Responses are JSON objects with a top-level "status" field ("ok" or
// "fail"), the session "state", and a "checks" map with per-checker
// results.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is healthy.
type Checker struct {
	// Name labels the check in the JSON response (e.g. "audio_device",
	// "stt_api").
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	State  string            `json:"state,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. Safe for concurrent use; the checker
// list is fixed at construction time.
type Handler struct {
	state    func() string
	checkers []Checker
}

// New creates a [Handler]. state reports the pipeline session state for the
// liveness response and may be nil. Checkers run sequentially on each
// /readyz request, in the order given.
func New(state func() string, checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{state: state, checkers: c}
}

// Healthz is a liveness probe: a process that can serve HTTP is alive. The
// response includes the session state so an operator can tell a stalled
// idle process from a listening one.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	res := result{Status: "ok"}
	if h.state != nil {
		res.State = h.state()
	}
	writeJSON(w, http.StatusOK, res)
}

// Readyz returns 200 only when every registered [Checker] passes.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	if h.state != nil {
		res.State = h.state()
	}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
