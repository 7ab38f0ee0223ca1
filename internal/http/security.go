package http

import (
	"errors"
	"net"
	"net/http"

	"bilancio/internal/auth"
	"bilancio/internal/log"
	"bilancio/internal/metrics"
)

type principalKey struct{}

// securityHeaders sets the response headers every JSON endpoint carries.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// clientIP is the host part of RemoteAddr, already rewritten by RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			metrics.HTTPRateLimited.Inc()
			w.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// basicAuth authenticates every request against the user store and only
// lets the owner of the session through.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}
		email, password, ok := r.BasicAuth()
		if !ok {
			metrics.HTTPAuthFailures.WithLabelValues(metrics.AuthMissing).Inc()
			unauthorized(w)
			return
		}
		p, err := s.auth.Authenticate(r.Context(), email, password)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				metrics.HTTPAuthFailures.WithLabelValues(metrics.AuthUnavailable).Inc()
				log.FromContext(r.Context()).ErrorContext(r.Context(), "Authentication error", log.FieldError, err)
				ErrorResponse(http.StatusInternalServerError, "authentication unavailable").Write(w)
				return
			}
			metrics.HTTPAuthFailures.WithLabelValues(metrics.AuthInvalid).Inc()
			unauthorized(w)
			return
		}
		if owner := s.session.Principal(); p.Email != owner.Email {
			metrics.HTTPAuthFailures.WithLabelValues(metrics.AuthWrongOwner).Inc()
			ErrorResponse(http.StatusForbidden, "ledger belongs to another user").Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r, p)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="bilancio", charset="UTF-8"`)
	ErrorResponse(http.StatusUnauthorized, "authentication required").Write(w)
}
