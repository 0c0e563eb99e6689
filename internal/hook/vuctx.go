package hook

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

type ctxKey string

const vuKey ctxKey = "loadgen.vu"

// WithVirtualUser stores the virtual user ID in context.
func WithVirtualUser(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, vuKey, id)
}

// VirtualUserFromCtx fetches the virtual user ID from context.
func VirtualUserFromCtx(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	v := ctx.Value(vuKey)
	if v == nil {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
