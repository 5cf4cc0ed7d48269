package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := writeJSON(w,
		map[string]interface{}{
			"requestid": requestID,
			"status":    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"message":   "Hello. Books catalog api is available. Enjoy :)",
		},
	); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Ready reports whether the storage can serve requests.
func (api *APIHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	status, state := http.StatusOK, "ready"
	if api.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := api.storage.Ping(ctx); err != nil {
			logger.Error("storage ping failed", zap.String("storage.driver", api.config.Storage.Driver), zap.Error(err))
			status, state = http.StatusServiceUnavailable, "unavailable"
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := writeJSON(w, map[string]string{"storage": state}); err != nil {
		logger.Error("failed to send ready response", zap.Error(err))
	}
}

// Maintenance handles request to enable or disable the maintenance mode of the service.
// Enable the maintenance mode : /ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
// Disable the maintenance mode: /ops/maintenance?status=disable
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	q := r.URL.Query()
	mstatus := q.Get("status")

	var response map[string]interface{}
	switch mstatus {
	case "enable":
		api.mode.Enable(q.Get("msg"), api.clock.Now().UTC())
		msg, started := api.mode.Details()
		response = map[string]interface{}{
			"requestid":           requestID,
			"maintenance.started": started.Format(time.RFC1123),
			"maintenance.message": msg,
			"message":             "Maintenance mode enabled successfully.",
		}
		logger.Info("maintenance mode enabled", zap.String("maintenance.message", msg))

	case "disable":
		api.mode.Disable()
		response = map[string]interface{}{
			"requestid": requestID,
			"message":   "Maintenance mode disabled successfully.",
		}
		logger.Info("maintenance mode disabled")

	default:
		errResp := NewAPIError(http.StatusBadRequest, "status query parameter must be enable or disable")
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			logger.Error("failed to send error response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := writeJSON(w, response); err != nil {
		logger.Error("failed to send maintenance response", zap.String("request.maintenance", mstatus), zap.Error(err))
	}
}

// GetStatistics provides useful details about the application to the internal ops users.
// The stats returns by this handler do not contain the ops request which triggered that.
// That is why we remove 1 from the called field value in order to match the status stats.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	msg, started := api.mode.Details()
	maintenanceStarted := ""
	if !started.IsZero() {
		maintenanceStarted = started.Format(time.RFC1123)
	}
	called := atomic.LoadUint64(&api.stats.called)
	if called > 0 {
		called--
	}

	api.stats.mu.RLock()
	status := make(map[int]uint64, len(api.stats.status))
	for code, count := range api.stats.status {
		status[code] = count
	}
	api.stats.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	err := writeJSON(w,
		map[string]interface{}{
			"requestid":      requestID,
			"app.version":    api.stats.version,
			"app.container":  api.stats.container,
			"app.platform":   api.stats.platform,
			"go.version":     api.stats.runtime,
			"storage.driver": api.config.Storage.Driver,
			"called":         called,
			"started":        api.stats.started.Format(time.RFC1123),
			"uptime":         fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"maintenance": map[string]interface{}{
				"enabled": api.mode.enabled.Load(),
				"started": maintenanceStarted,
				"message": msg,
			},
			"status": status,
		},
	)
	if err != nil {
		logger.Error("failed to send statistics response", zap.Error(err))
	}
}

// GetConfigs serves current in-use configurations/settings. Secrets
// are excluded by the config json tags.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := writeJSON(w, map[string]interface{}{"configs": api.config}); err != nil {
		logger.Error("failed to send settings response", zap.Error(err))
	}
}

// NotFound responds to unknown routes with a json error. Preflight
// requests are still answered so browsers can read the error.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.setCORSHeaders(w.Header())
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		errResp := NewAPIError(http.StatusNotFound, "resource not found: "+r.URL.Path)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send not found response", zap.Error(err))
		}
	})
}

// MethodNotAllowed responds with a json error to known routes requested
// with an unsupported method. The router sets the Allow header.
func (api *APIHandler) MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.setCORSHeaders(w.Header())
		errResp := NewAPIError(http.StatusMethodNotAllowed, "method not allowed: "+r.Method+" "+r.URL.Path)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send method not allowed response", zap.Error(err))
		}
	})
}

// Preflight answers the cors preflight requests for every route.
func (api *APIHandler) Preflight() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		api.setCORSHeaders(w.Header())
		w.WriteHeader(http.StatusOK)
	})
}

// OpsHandlerWrapper adapts a standard handler to the router handle signature.
func (api *APIHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

func (api *APIHandler) GetCPUProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Profile(w, r)
}

func (api *APIHandler) GetTraceProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Trace(w, r)
}

func (api *APIHandler) GetSymbol(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Symbol(w, r)
}

func (api *APIHandler) GetCmdLine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Cmdline(w, r)
}
