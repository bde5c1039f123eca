package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"formship-quiz-service/internal/app"
	"formship-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
)

type requesterKey struct{}

// withRequester resolves the bearer credential once per request. A
// credential that fails verification is rejected rather than treated as anonymous.
func withRequester(resolver *app.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requester, err := resolver.Resolve(r.Context(), bearerToken(r))
			if err != nil {
				writeError(w, r, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), requesterKey{}, requester)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requesterFrom(ctx context.Context) domain.Requester {
	if r, ok := ctx.Value(requesterKey{}).(domain.Requester); ok {
		return r
	}
	return domain.Anonymous{}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
