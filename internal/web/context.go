package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/portfolio-import/internal/core"
)

// clientIP returns the request's client address without the port.
// RemoteAddr has already been rewritten by TrustedRealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// withClient attaches the caller's IP and User-Agent so imports log who
// started them.
func withClient(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, core.Client{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
}
