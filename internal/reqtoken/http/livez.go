package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/reqtoken/pkg/httpx"
	"github.com/aussiebroadwan/reqtoken/pkg/reqtokensdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness Probe
//	@Description	Answers 200 while the process is up. The database and signer are not consulted, use /readyz for those
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	reqtokensdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusOK, reqtokensdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		})
	}
}
