// Package health serves the liveness probe.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/chorehub/internal/app/system/jsonio"
	"github.com/dalemusser/chorehub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

type Handler struct {
	Client Pinger
	Log    *zap.Logger
}

func NewHandler(client Pinger, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Log: logger}
}

type report struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	LatencyMS int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// Serve answers 200 when the primary answers a ping within the ping
// deadline and 503 otherwise. HEAD gets the status code only.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	start := time.Now()
	err := h.Client.Ping(ctx, readpref.Primary())
	rep := report{Status: "ok", Database: "connected", LatencyMS: time.Since(start).Milliseconds()}
	code := http.StatusOK
	if err != nil {
		h.Log.Warn("health: mongo ping failed", zap.Error(err), zap.Int64("latency_ms", rep.LatencyMS))
		rep.Status, rep.Database, rep.Message = "error", "disconnected", "Database unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	jsonio.Write(w, code, rep)
}
