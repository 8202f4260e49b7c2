// Package storagetest builds throwaway engines for package tests.
package storagetest

import (
	"context"
	"sync"

	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// NewEngine opens an engine with the schema applied and closes it when the
// current test ends.
func NewEngine() *storage.Engine {
	ctx := context.Background()
	engine, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
	Expect(err).NotTo(HaveOccurred())
	Expect(engine.InitializeSchema(ctx)).To(Succeed())
	DeferCleanup(engine.Close)
	return engine
}

// Persister counts Persist calls and can be told to fail.
type Persister struct {
	mu    sync.Mutex
	calls int
	Err   error
}

func (p *Persister) Persist(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.Err
}

func (p *Persister) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
