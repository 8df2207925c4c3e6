package handlers

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/roadworthy/inspection-platform/pkg/auth"
	"github.com/roadworthy/inspection-platform/pkg/logger"
	"github.com/roadworthy/inspection-platform/pkg/response"
	"github.com/roadworthy/inspection-platform/services/auth/internal/repository"
	"github.com/roadworthy/inspection-platform/services/auth/internal/service"
)

type Handlers struct {
	authService service.AuthService
	authority   *auth.Authority
	rateLimits  repository.RateLimitRepository
}

func New(authService service.AuthService, authority *auth.Authority, rateLimits repository.RateLimitRepository) *Handlers {
	return &Handlers{
		authService: authService,
		authority:   authority,
		rateLimits:  rateLimits,
	}
}

// CredentialRateLimit caps login/registration attempts per client IP.
// Fails open: a Redis outage must not lock everyone out.
func (h *Handlers) CredentialRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.rateLimits == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := "credential_attempts:" + getClientIP(r)
			allowed, err := h.rateLimits.CheckRateLimit(r.Context(), key, limit, window)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.RateLimit(w, "Too many attempts. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
