// Package engine advances the world clock and resolves due processes through an
// open registry of handlers.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"empires-server/internal/process"
	apperrors "empires-server/internal/shared/errors"
	"empires-server/internal/store"
	"empires-server/internal/world"
)

// Env is what a handler sees while resolving a process. Tx is the transaction that
// already claimed the process; the handler's writes commit or roll back with that claim.
type Env struct {
	Tx     store.Tx
	World  world.World
	Logger *slog.Logger
}

// Handler applies the effects of a due process. Returning an error discards them.
type Handler func(ctx context.Context, env Env, p process.Process) error

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(handlerID string, h Handler) error {
	if handlerID == "" || h == nil {
		return fmt.Errorf("register handler: id and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[handlerID]; exists {
		return fmt.Errorf("register handler: %q already registered", handlerID)
	}
	r.handlers[handlerID] = h
	return nil
}

func (r *Registry) Lookup(handlerID string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[handlerID]
	return h, ok
}

// HandlerIDs returns the registered ids in order.
func (r *Registry) HandlerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Schedule stores a process in tx. Unknown handler ids and durations under one tick
// are rejected before anything is written.
func (r *Registry) Schedule(ctx context.Context, tx store.Tx, startTick, durationTicks int64, handlerID string, payload any) (*process.Process, error) {
	if _, ok := r.Lookup(handlerID); !ok {
		return nil, apperrors.Schedulingf("no handler registered for %q", handlerID)
	}
	p, err := process.New(startTick, durationTicks, handlerID, payload)
	if err != nil {
		return nil, err
	}
	if err := tx.CreateProcess(ctx, &p); err != nil {
		return nil, store.AppError(err, "process", handlerID)
	}
	return &p, nil
}
