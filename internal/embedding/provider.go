package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Provider maps text to a fixed-length vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Factory builds the provider for a model name.
type Factory func(model string) (Provider, error)

// Pool lazily creates one provider per model and reuses it for the life of
// the process. It is safe for concurrent use.
type Pool struct {
	factory Factory

	mu        sync.Mutex
	providers map[string]Provider
	closed    bool
}

// NewPool creates an empty pool backed by factory.
func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory, providers: make(map[string]Provider)}
}

// Get returns the provider for model, creating it on first use.
func (p *Pool) Get(model string) (Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("embedding pool is closed")
	}
	if provider, ok := p.providers[model]; ok {
		return provider, nil
	}
	if p.factory == nil {
		return nil, errors.New("embedding pool has no factory")
	}
	provider, err := p.factory(model)
	if err != nil {
		return nil, fmt.Errorf("load embedding model %s: %w", model, err)
	}
	p.providers[model] = provider
	return provider, nil
}

// Len reports how many providers have been created.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.providers)
}

// Close releases every provider that implements io.Closer. The pool cannot
// be used afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for model, provider := range p.providers {
		if closer, ok := provider.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", model, err))
			}
		}
	}
	p.providers = nil
	return errors.Join(errs...)
}
