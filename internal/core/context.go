package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "import_client"

// Client identifies who started an import, for the logs.
type Client struct {
	IP        string
	UserAgent string
}

// ContextWithClient attaches c to ctx.
func ContextWithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, ctxKeyClient, c)
}

// ClientFromContext extracts the Client set by ContextWithClient.
func ClientFromContext(ctx context.Context) (Client, bool) {
	c, ok := ctx.Value(ctxKeyClient).(Client)
	return c, ok
}
