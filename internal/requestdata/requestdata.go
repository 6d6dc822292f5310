package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

var requestDataKey ctxKey

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

// Identity is the caller as described by a verified bearer token. It exists
// before any user row does; ResolveUser turns it into a UserID.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Claims  map[string]interface{}
}

// RequestData travels with the request context from the auth middleware to
// handlers. UserID is uuid.Nil until the lazy user sync has run.
type RequestData struct {
	TokenString string
	Identity    *Identity
	UserID      uuid.UUID
	Premium     bool
}
