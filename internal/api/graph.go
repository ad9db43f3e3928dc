package api

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// graphProxy reverse-proxies /api/v1/graph/* to the external
// time-series renderer configured under metrics.render_url. The proxy
// is read-only glue: no rewriting beyond stripping the route prefix.
func (s *Server) graphProxy() http.Handler {
	target := s.metrics.RenderURL
	if target == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeNotFound(w, "graph renderer not configured")
		})
	}

	upstream, err := url.Parse(target)
	if err != nil {
		s.logger.Error("invalid graph render_url", "url", target, "error", err)
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeInternalError(w, "graph renderer misconfigured")
		})
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("graph proxy failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeInternal, "graph renderer unreachable")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = "/" + strings.TrimPrefix(r.URL.Path, "/api/v1/graph/")
		proxy.ServeHTTP(w, r)
	})
}
