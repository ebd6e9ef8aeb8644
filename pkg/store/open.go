package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ccollicutt/synclog/pkg/config"
)

// OpenFunc opens a Store from its configuration.
type OpenFunc func(ctx context.Context, cfg config.Store) (Store, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes a store driver available to Open. Implementations call it
// from init, so importing the implementation package is enough to enable it.
func Register(name string, fn OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if fn == nil {
		panic("store: Register open func is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("store: Register called twice for driver " + name)
	}
	drivers[name] = fn
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	driversMu.RLock()
	fn, ok := drivers[cfg.Driver]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown store driver %q (registered: %v)", cfg.Driver, Drivers())
	}

	s, err := fn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	return s, nil
}
