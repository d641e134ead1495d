package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"session-auth-demo/gate"
	"session-auth-demo/logger"
	"session-auth-demo/models"

	"go.uber.org/zap"
)

// HandlerFunc is a handler that receives the request context explicitly.
type HandlerFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request)

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f(r.Context(), w, r)
}

// RouteInfo describes the route a request was matched to.
type RouteInfo struct {
	Name   string
	Method string
	Path   string
}

type routeKey struct{}

// WithRouteInfo stores the matched route in ctx for logging.
func WithRouteInfo(ctx context.Context, info RouteInfo) context.Context {
	return context.WithValue(ctx, routeKey{}, info)
}

// RouteInfoFromContext returns the matched route, if any.
func RouteInfoFromContext(ctx context.Context) (RouteInfo, bool) {
	info, ok := ctx.Value(routeKey{}).(RouteInfo)
	return info, ok
}

// logRequest logs a message prefixed with the matched route.
func logRequest(ctx context.Context, level string, message string, fields ...zap.Field) {
	info, _ := RouteInfoFromContext(ctx)

	logMsg := time.Now().Format("2006-01-02 15:04:05") + " - " + info.Name + " - " + info.Method + " - " + info.Path
	if user := gate.UserFromContext(ctx); user != nil {
		logMsg += " - user:" + user.Email
	}
	if message != "" {
		logMsg += " - " + message
	}

	allFields := append([]zap.Field{
		zap.String("route", info.Name),
		zap.String("method", info.Method),
		zap.String("path", info.Path),
	}, fields...)

	switch level {
	case "info":
		logger.Info(logMsg, allFields...)
	case "warn":
		logger.Warn(logMsg, allFields...)
	case "error":
		logger.Error(logMsg, allFields...)
	case "debug":
		logger.Debug(logMsg, allFields...)
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logRequest(ctx, "error", "Failed to encode response", zap.Error(err))
	}
}

// writeHTML renders tmpl fully before writing so a template error can still
// become a 500.
func writeHTML(ctx context.Context, w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logRequest(ctx, "error", "Failed to render page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// internalError ends a request whose store or registry call failed.
func internalError(ctx context.Context, w http.ResponseWriter, r *http.Request, message string, err error) {
	logRequest(ctx, "error", message, zap.Error(err))
	if gate.IsAPIRequest(r) {
		writeJSON(ctx, w, http.StatusInternalServerError, models.NewInternalServerError())
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
