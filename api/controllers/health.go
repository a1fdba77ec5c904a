package controllers

import (
	"context"
	"net/http"

	"github.com/hirelocal/hirelocal-backend/api/responses"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HireLocal-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness, checking the redis dependency when provided.
func HealthReady(cfg *config.Config, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-HireLocal-Env", cfg.App.Env)
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis ping"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
