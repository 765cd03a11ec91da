package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/markbang/cyop/api/responses"
	"github.com/markbang/cyop/pkg/config"
	pkgerrors "github.com/markbang/cyop/pkg/errors"
	"github.com/markbang/cyop/pkg/logger"
)

const readyProbeTimeout = 2 * time.Second

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cyop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the backing stores answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, probes ...pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cyop-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		for _, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
