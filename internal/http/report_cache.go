package http

import (
	"net/http"
	"strconv"

	"tendies/internal/log"
)

func userCachePrefix(userID int64) string {
	return "u" + strconv.FormatInt(userID, 10) + ":"
}

// cachedReport returns the cached value under key for the caller, computing
// and storing it on a miss. Errors are not cached.
func cachedReport[T any](s *Server, r *http.Request, key string, compute func() (T, error)) (T, error) {
	full := userCachePrefix(userID(r)) + key
	if v, ok := s.reportCache.Get(full); ok {
		if typed, ok := v.(T); ok {
			log.FromContext(r.Context()).DebugContext(r.Context(), "Report cache hit", "key", full)
			return typed, nil
		}
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	s.reportCache.Set(full, v)
	return v, nil
}

// invalidating drops the caller's cached reports after a successful write.
func (s *Server) invalidating(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status < http.StatusBadRequest {
			if n := s.reportCache.DeletePrefix(userCachePrefix(userID(r))); n > 0 {
				log.FromContext(r.Context()).DebugContext(r.Context(), "Report cache invalidated", "entries", n)
			}
		}
	})
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (w *statusCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
