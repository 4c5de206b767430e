package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/logging"
	"github.com/R3E-Network/model_layer/internal/middleware"
)

// requestInfo collects what the request log line needs while handlers run.
// It is owned by one request goroutine.
type requestInfo struct {
	uuid      uuid.UUID
	start     time.Time
	userID    *int64
	rpcID     json.RawMessage
	rpcMethod string
	err       error
}

type requestInfoKey struct{}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

// RequestLog emits one structured line per request once the response is
// written.
func RequestLog(logger *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &requestInfo{uuid: uuid.New(), start: time.Now().UTC()}
			ctx := context.WithValue(r.Context(), requestInfoKey{}, info)

			rw := middleware.NewResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			logRequestLine(ctx, logger, r, info, rw.StatusCode())
		})
	}
}

// trackUser copies the resolved caller into the request info. It runs after
// the ctx resolver, whose result is only visible downstream.
func trackUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info := requestInfoFrom(r.Context()); info != nil {
			if c, err, ok := identity.FromContext(r.Context()); ok && err == nil {
				id := c.UserID()
				info.userID = &id
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logRequestLine(ctx context.Context, logger *logging.Logger, r *http.Request, info *requestInfo, status int) {
	fields := logrus.Fields{
		"uuid":        info.uuid.String(),
		"timestamp":   info.start.Format(time.RFC3339Nano),
		"http_path":   r.URL.Path,
		"http_method": r.Method,
		"status":      status,
		"duration_ms": time.Since(info.start).Milliseconds(),
	}
	if info.userID != nil {
		fields["user_id"] = *info.userID
	}
	if info.rpcMethod != "" {
		fields["rpc_method"] = info.rpcMethod
		if len(info.rpcID) > 0 {
			fields["rpc_id"] = string(info.rpcID)
		}
	}
	if info.err != nil {
		_, client := errors.ToClient(info.err)
		fields["client_error_type"] = client.Type
		if se := errors.GetServiceError(info.err); se != nil {
			fields["error_type"] = string(se.Kind)
		}
		fields["error_data"] = info.err.Error()
	}

	entry := logger.WithContext(ctx).WithFields(fields)
	if status >= http.StatusInternalServerError {
		entry.Error("request")
		return
	}
	entry.Info("request")
}
