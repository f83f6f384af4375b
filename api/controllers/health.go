package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/localbites/kiosk-backend/api/responses"
	"github.com/localbites/kiosk-backend/pkg/config"
	pkgerrors "github.com/localbites/kiosk-backend/pkg/errors"
	"github.com/localbites/kiosk-backend/pkg/logger"
)

const readyCheckTimeout = 2 * time.Second

// Pinger is any dependency the readiness probe exercises.
type Pinger interface {
	Ping(ctx context.Context) error
}

type namedPinger struct {
	name   string
	pinger Pinger
}

func NamedPinger(name string, pinger Pinger) namedPinger {
	return namedPinger{name: name, pinger: pinger}
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kiosk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every backing dependency; one failure fails the probe.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...namedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Kiosk-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		for _, dep := range deps {
			if dep.pinger == nil {
				continue
			}
			if err := dep.pinger.Ping(ctx); err != nil {
				checks[dep.name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.name+" unavailable").WithDetails(checks))
				return
			}
			checks[dep.name] = "up"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
