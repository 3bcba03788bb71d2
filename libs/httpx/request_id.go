package httpx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyWidgetSession
)

const (
	RequestIDHeader     = "X-Request-Id"
	WidgetSessionHeader = "X-Widget-Session"
)

// maxSessionLen bounds client supplied session ids before they are used as cache keys.
const maxSessionLen = 128

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// ContextWithRequestID is shared by the HTTP middleware and the gRPC interceptors so a
// request id survives the hop between transports.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithRequestID(r.Context(), id)))
	})
}

// WidgetSessionFromContext returns the embedding widget's session id, or "" when the
// client did not send one.
func WidgetSessionFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyWidgetSession).(string)
	return v
}

// WithWidgetSession stores the X-Widget-Session header on the request context. Ids that
// are empty or oversized are dropped.
func WithWidgetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(WidgetSessionHeader))
		if id == "" || len(id) > maxSessionLen {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyWidgetSession, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NewRequestID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
