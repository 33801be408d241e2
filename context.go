package chatauth

import "context"

type clientIPContextKey struct{}
type channelContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses
// it for lookup throttling and audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithChannel attaches the conversational channel ("web", "telegram",
// ...) to ctx. Audit events carry it so operators can tell delivery
// surfaces apart.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelContextKey{}, channel)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func channelFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	channel, _ := ctx.Value(channelContextKey{}).(string)
	return channel
}
