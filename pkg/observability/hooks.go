// Package observability provides hooks for metrics and tracing of loader
// activity.
//
// The loaders call the registered [LoaderHooks] after every load, save,
// zoom-level save and tile save. The default hooks do nothing; a host
// application registers its own at startup:
//
//	func main() {
//	    observability.SetLoaderHooks(&promHooks{})
//	    // ... open loaders
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// LoaderHooks receives events from the loaders. Backend is "sqlite" or
// "file".
type LoaderHooks interface {
	OnLoad(ctx context.Context, backend string, branches int, duration time.Duration, err error)
	OnSave(ctx context.Context, backend string, branches int, superseded bool, duration time.Duration, err error)

	// OnZoomLevelSave reports how many tiles a superseded zoom level dropped.
	OnZoomLevelSave(ctx context.Context, backend string, level int, droppedTiles int, err error)
	OnTileSave(ctx context.Context, backend string, level int, err error)
}

// NoopLoaderHooks is a no-op implementation of LoaderHooks.
type NoopLoaderHooks struct{}

func (NoopLoaderHooks) OnLoad(context.Context, string, int, time.Duration, error)       {}
func (NoopLoaderHooks) OnSave(context.Context, string, int, bool, time.Duration, error) {}
func (NoopLoaderHooks) OnZoomLevelSave(context.Context, string, int, int, error)        {}
func (NoopLoaderHooks) OnTileSave(context.Context, string, int, error)                  {}

var (
	loaderHooks LoaderHooks = NoopLoaderHooks{}
	hooksMu     sync.RWMutex
)

// SetLoaderHooks registers custom loader hooks.
// This should be called once at application startup before any loader is used.
func SetLoaderHooks(h LoaderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		loaderHooks = h
	}
}

// Loader returns the registered loader hooks.
func Loader() LoaderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return loaderHooks
}

// Reset restores the no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	loaderHooks = NoopLoaderHooks{}
}
