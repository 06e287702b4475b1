package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrEngineInit indicates the recognition engine could not be initialized.
// Initialization is retried on the next scan attempt.
var ErrEngineInit = errors.New("recognition engine initialization failed")

// Engine defines the interface for text recognition over a captured frame
type Engine interface {
	// Recognize extracts the raw text visible in an image
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
	// Close closes the engine and releases resources
	Close() error
}

// EngineFactory constructs a recognition engine on demand
type EngineFactory func() (Engine, error)

// LazyEngine defers engine construction until the first recognition call.
// The first successful initialization is cached and reused for every
// subsequent scan until Close. A failed initialization is reported as
// ErrEngineInit and retried on the next call. Safe for concurrent scans:
// racing first calls share one initialization.
type LazyEngine struct {
	factory EngineFactory

	mu     sync.Mutex
	engine Engine
}

// NewLazyEngine creates a LazyEngine around a factory
func NewLazyEngine(factory EngineFactory) *LazyEngine {
	return &LazyEngine{factory: factory}
}

// ensure initializes the underlying engine if it hasn't been initialized
// yet. Idempotent: once an engine exists it is returned as-is.
func (l *LazyEngine) ensure() (Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}
	engine, err := l.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}
	slog.Info("Recognition engine initialized")
	l.engine = engine
	return engine, nil
}

// Recognize initializes the engine if needed and runs recognition
func (l *LazyEngine) Recognize(ctx context.Context, image []byte, contentType string) (string, error) {
	engine, err := l.ensure()
	if err != nil {
		return "", err
	}
	return engine.Recognize(ctx, image, contentType)
}

// Close closes the underlying engine if it was ever initialized
func (l *LazyEngine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine == nil {
		return nil
	}
	err := l.engine.Close()
	l.engine = nil
	return err
}
