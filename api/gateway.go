package api

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"WarrenFinSaas/internal/logger"
	"WarrenFinSaas/pkg/loadbalancer"
)

// createReverseProxy returns a handler that proxies to the next upstream
// from the balancer, audit-logging every request and any upstream failure.
func createReverseProxy(lb *loadbalancer.LoadBalancer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.RemoteAddr
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP = xff
		}
		logger.Audit(fmt.Sprintf("[Gateway] Incoming request: %s %s from %s", r.Method, r.URL.Path, clientIP))

		target := lb.GetNextServer()
		u, err := url.Parse(target)
		if err != nil || target == "" {
			logger.Audit(fmt.Sprintf("[Gateway][ERROR] Proxy error: bad target URL %q for %s", target, r.URL.Path))
			http.Error(w, "Bad target URL", http.StatusInternalServerError)
			return
		}
		proxy := httputil.NewSingleHostReverseProxy(u)

		rw := &statusWriter{ResponseWriter: w, statusCode: 200}
		proxy.ServeHTTP(rw, r)
		if rw.statusCode >= 400 {
			logger.Audit(fmt.Sprintf("[Gateway][ERROR] Proxied to %s for %s, status %d", target, r.URL.Path, rw.statusCode))
		}
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StartGateway starts the front-door server that fans requests out to the
// mapper upstreams.
func StartGateway(port string, mapperUpstreams []string) {
	if len(mapperUpstreams) == 0 {
		mapperUpstreams = []string{"http://localhost:7010"}
	}
	mapperLB := loadbalancer.NewLoadBalancer(mapperUpstreams)

	mux := http.NewServeMux()
	mux.HandleFunc("/mapper/", createReverseProxy(mapperLB))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API Gateway is healthy"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Audit("[Gateway] [Error] " + r.URL.Path + " from " + r.RemoteAddr + " (route not found)")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 - Route not found"))
	})

	log.Println("API Gateway started on :" + port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Gateway server failed: %v", err)
	}
}
