package launcher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Salourh/partfield-deploy/internal/printer"
)

// StatusResponse is the JSON body served from /healthz while awaiting
// an operator.
type StatusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Since  string `json:"since"`
}

// OperatorGate is the explicit terminal awaiting-operator state. On
// any fatal condition the launcher does not exit: it serves a health
// endpoint describing why it stopped and blocks forever, keeping the
// pod alive so an operator can attach a terminal. Supervisors poll
// /healthz instead of guessing from an infinite sleep.
type OperatorGate struct {
	server *http.Server
	reason string
	since  time.Time
	log    *slog.Logger
}

// NewOperatorGate creates the gate's health server on the given port.
func NewOperatorGate(port int, reason string, log *slog.Logger) *OperatorGate {
	mux := http.NewServeMux()
	gate := &OperatorGate{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		reason: reason,
		since:  time.Now(),
		log:    log,
	}
	mux.HandleFunc("/healthz", gate.handleHealthz)
	return gate
}

// Await starts the health endpoint and blocks forever. It never
// returns; the pod is recycled or the operator attaches and acts.
func (g *OperatorGate) Await() {
	printer.Warning("entering awaiting-operator state: %s\n", g.reason)
	printer.Info("Health endpoint: http://localhost%s/healthz\n", g.server.Addr)
	printer.Info("The process will stay alive for inspection. Attach a terminal to investigate.\n")
	g.log.Error("awaiting operator", "reason", g.reason)

	go func() {
		if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Port collision is not worth dying over; the blocking
			// behavior is the load-bearing part.
			g.log.Warn("health endpoint unavailable", "error", err)
		}
	}()

	select {}
}

// handleHealthz always reports unhealthy: this state exists because
// something fatal happened.
func (g *OperatorGate) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(StatusResponse{
		Status: "awaiting_operator",
		Reason: g.reason,
		Since:  g.since.UTC().Format(time.RFC3339),
	})
}
