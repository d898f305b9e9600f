package fsbridge

import (
	"context"

	"github.com/puzpuzpuz/xsync/v4"
)

// Handler fully replaces the built-in dispatch for one operation name.
// paths carries the raw (unmapped) path arguments of the call; args any
// extra positional arguments passed to Invoke1/Invoke2.
type Handler func(ctx context.Context, paths []string, args ...any) (any, error)

// extensionRegistry maps operation names to override handlers. Last
// registration wins; entries live for the life of the owning router.
type extensionRegistry struct {
	handlers *xsync.Map[string, Handler]
}

func newExtensionRegistry() *extensionRegistry {
	return &extensionRegistry{handlers: xsync.NewMap[string, Handler]()}
}

func (r *extensionRegistry) register(name string, h Handler) {
	r.handlers.Store(name, h)
}

func (r *extensionRegistry) lookup(name string) (Handler, bool) {
	return r.handlers.Load(name)
}
