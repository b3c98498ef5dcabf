package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/veyra-chat/veyra/pkg/logger"
)

// TraceHeader carries the request's trace id. The CORS layer allows the same
// header so browser clients can send one.
const TraceHeader = "X-Trace-ID"

// Trace tags every request with a trace id and binds it to the
// request-scoped logger. An inbound header value is honored so clients can
// correlate retries; otherwise a fresh id is minted. The id is echoed on the
// response either way.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set(TraceHeader, traceID)

		ctx := logger.With(r.Context(), "trace_id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
