package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/metrics"
	"ms-events/internal/utils"
)

// Middleware applies l to every request, keyed by the authenticated user
// when there is one and by client IP otherwise. It must run after the auth
// middleware.
func Middleware(l Limiter, log *logger.Logger, trustedProxyCIDRs []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r, trustedProxyCIDRs)
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Warn("RATELIMIT", "Limiter unavailable, allowing request: "+err.Error())
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(res)))
				metrics.RateLimitedTotal.WithLabelValues(strings.SplitN(key, ":", 2)[0]).Inc()
				log.LogSecurity("RATE_LIMIT", key+" exceeded "+strconv.Itoa(res.Limit)+" requests per minute")
				utils.WriteError(w, r, log, utils.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retrySeconds(res Result) int {
	s := int(math.Ceil(res.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// ClientKey returns "user:<id>" for an authenticated request and
// "ip:<addr>" otherwise.
func ClientKey(r *http.Request, trustedProxyCIDRs []string) string {
	if actor := auth.ActorFrom(r.Context()); actor != nil {
		return "user:" + strconv.FormatInt(actor.ID, 10)
	}
	return "ip:" + clientIP(r, trustedProxyCIDRs)
}

// clientIP only trusts forwarding headers from configured proxies.
func clientIP(r *http.Request, trustedProxyCIDRs []string) string {
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			return strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}
	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, c := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(c)
		if err != nil {
			continue
		}
		if cidr.Contains(parsed) {
			return true
		}
	}
	return false
}
