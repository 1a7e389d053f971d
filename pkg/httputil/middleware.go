package httputil

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kitchenbook/kitchenbook-backend/pkg/actor"
	"github.com/kitchenbook/kitchenbook-backend/pkg/auth"
	"github.com/kitchenbook/kitchenbook-backend/pkg/errors"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/messaging"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
)

// RequestID middleware adds a request ID to each request. It doubles as the
// correlation ID of events published while serving the request.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = messaging.WithCorrelationID(ctx, requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger middleware logs HTTP requests
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			ownerID, _ := owner.OwnerID(r.Context())

			log.WithRequestID(GetRequestID(r.Context())).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("owner_id", ownerID).
				Str("remote_addr", r.RemoteAddr).
				Msg("HTTP request")
		})
	}
}

// Recoverer middleware recovers from panics
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					log.WithRequestID(GetRequestID(r.Context())).
						WithError(fmt.Errorf("panic: %v", p)).
						Error().
						Str("path", r.URL.Path).
						Msg("panic recovered")

					Error(w, errors.Internal("internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the access log
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// OwnerMiddleware resolves the account owner for every request and adds it,
// together with the acting user, to the request context.
//
// Sources, in order:
//   - X-Owner-ID (and optional X-User-ID, X-User-Email) set by the gateway
//   - Authorization: Bearer <token>, verified with the shared HS256 secret
//   - access_token query parameter, for websocket clients that cannot set headers
//
// Missing or invalid identity returns 401. /health is exempt for monitoring.
func OwnerMiddleware(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			a, err := resolveActor(r, verifier)
			if err != nil {
				Error(w, err)
				return
			}

			ctx := owner.WithOwnerID(r.Context(), a.OwnerID)
			ctx = actor.WithActor(ctx, a)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveActor(r *http.Request, verifier *auth.Verifier) (*actor.Actor, error) {
	if raw := r.Header.Get("X-Owner-ID"); raw != "" {
		ownerID, err := owner.Parse(raw)
		if err != nil {
			return nil, errors.Unauthorized("invalid owner context")
		}
		return &actor.Actor{
			ID:      r.Header.Get("X-User-ID"),
			Email:   r.Header.Get("X-User-Email"),
			OwnerID: ownerID,
		}, nil
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" || verifier == nil {
		return nil, errors.Unauthorized("missing owner context")
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	ownerID, err := owner.Parse(claims.OwnerID)
	if err != nil {
		return nil, errors.Unauthorized("invalid owner context")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return &actor.Actor{ID: userID, Email: claims.Email, OwnerID: ownerID}, nil
}
