package endpoint

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/uno-framework/uno/config"
	"github.com/uno-framework/uno/security"
	"golang.org/x/time/rate"
)

type claimsKey struct{}

// Claims returns the validated JWT claims of a request, nil when the
// request carried no token.
func Claims(r *http.Request) jwt.MapClaims {
	claims, _ := r.Context().Value(claimsKey{}).(jwt.MapClaims)
	return claims
}

// withMiddleware is the outermost wrapping: CORS, body cap, rate limit,
// bearer parsing, request metrics. Authorization itself happens per route.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if corsChecked(r, w) {
			return
		}
		if config.Cfg.Http.MaxBodySize > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.Http.MaxBodySize)
		}
		if !allowRate(clientIP(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if token := security.BearerToken(r.Header.Get("Authorization")); token != "" {
			if claims, err := s.Tokens.Validate(r.Context(), token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims))
			}
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		observeRequest(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// requireAuth gates a handler on a valid access token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := Claims(r)
		if claims == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if kind, _ := claims["kind"].(string); kind != "access" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func corsChecked(r *http.Request, w http.ResponseWriter) bool {
	cores := config.Cfg.Http.CORES
	if len(cores) > 0 {
		origin := r.Header.Get("Origin")
		if cores == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" && strings.Contains(cores, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
	}
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Accept-Language, X-CSRF-Token, Authorization, Rt, Origin, Refer, User-Agent")
		w.Header().Set("Access-Control-Max-Age", strconv.Itoa(30*86400))
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// limiters holds one token bucket per client IP.
var limiters = cmap.New[*rate.Limiter]()

func allowRate(ip string) bool {
	if config.Cfg.Http.RatePerSecond <= 0 {
		return true
	}
	limiter, ok := limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(config.Cfg.Http.RatePerSecond), config.Cfg.Http.RateBurst)
		limiters.Set(ip, limiter)
	}
	return limiter.Allow()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
