package http

import (
	"net/http"
	"time"

	"github.com/pallidlabs/authgate/internal/auth/store"
	"github.com/pallidlabs/authgate/pkg/httpx"
)

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// LivezHandler godoc
//
//	@Summary		Liveness check
//	@Description	Process-level liveness probe. Always 200 while the process serves.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=healthResponse}
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}, "")
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Pings the backing store; 503 when it is unreachable.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	httpx.Envelope{data=healthResponse}
//	@Failure		503	{object}	httpx.Envelope{data=healthResponse}
//	@Router			/readyz [get]
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, healthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
		}, "")
	}
}
