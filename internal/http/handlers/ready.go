package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/diagnosis/accounts-api/internal/http/response"
	"github.com/diagnosis/accounts-api/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Ready probes every registered dependency and answers 503 when any fails.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	response.WriteJSON(w, r, status, map[string]any{
		"status":       state,
		"dependencies": deps,
	})
}
