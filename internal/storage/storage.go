// Package storage holds the in-memory overlays for scope types, config items
// and config values. Every overlay mirrors a gateway.Gateway: reads refresh
// from it and degrade to cached state when it fails, writes go through to it
// and report its failures.
package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/jdotsun/hierarchical-config-demo/internal/gateway"
	"github.com/jdotsun/hierarchical-config-demo/internal/model"
)

// FailureObserver is notified about every failed gateway call.
type FailureObserver interface {
	ObserveGatewayFailure(op string)
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for degraded reads.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFailureObserver registers an observer for gateway failures.
func WithFailureObserver(observer FailureObserver) Option {
	return func(s *Storage) {
		s.observer = observer
	}
}

// Storage bundles the three overlays sharing one gateway.
type Storage struct {
	gw       gateway.Gateway
	logger   *zap.Logger
	observer FailureObserver

	scopes *ScopeRegistry
	items  *ItemRegistry
	values *ValueStore
}

// New constructs the overlays on top of gw. A nil gw behaves as gateway.Nop.
func New(gw gateway.Gateway, opts ...Option) *Storage {
	if gw == nil {
		gw = gateway.Nop{}
	}

	s := &Storage{
		gw:     gw,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.scopes = newScopeRegistry(s)
	s.values = newValueStore(s)
	s.items = newItemRegistry(s)
	return s
}

// Scopes returns the scope type registry.
func (s *Storage) Scopes() *ScopeRegistry { return s.scopes }

// Items returns the config item registry.
func (s *Storage) Items() *ItemRegistry { return s.items }

// Values returns the config value store.
func (s *Storage) Values() *ValueStore { return s.values }

// WarmUp loads every collection from the gateway into the overlays.
func (s *Storage) WarmUp(ctx context.Context) {
	s.scopes.refresh(ctx)
	s.items.refresh(ctx)
	s.values.refresh(ctx)
}

// readFailed records a failed gateway read; the caller continues with the overlay.
func (s *Storage) readFailed(op string, err error) {
	s.logger.Warn("gateway read failed, serving cached overlay",
		zap.String("op", op),
		zap.Error(err),
	)
	if s.observer != nil {
		s.observer.ObserveGatewayFailure(op)
	}
}

// writeFailed wraps a failed gateway write into a BackendError.
func (s *Storage) writeFailed(op string, err error) error {
	s.logger.Error("gateway write failed",
		zap.String("op", op),
		zap.Error(err),
	)
	if s.observer != nil {
		s.observer.ObserveGatewayFailure(op)
	}
	return &model.BackendError{Op: op, Err: err}
}
