// Package cancellation tracks in-flight format operations by request id so a
// later CancelFormat can signal them.
package cancellation

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrHandleExists = errors.New("cancellation: operation already in flight")

// Handle is the cancellation token for one in-flight operation. Cancelling is
// idempotent and never blocks.
type Handle struct {
	id     uint32
	ctx    context.Context
	cancel context.CancelFunc
}

func (h *Handle) ID() uint32 {
	return h.id
}

// Context is done once the handle is cancelled or its parent ends.
func (h *Handle) Context() context.Context {
	return h.ctx
}

func (h *Handle) Cancel() {
	h.cancel()
}

func (h *Handle) Cancelled() bool {
	return h.ctx.Err() != nil
}

// Registry maps request ids to handles. An id is present from Register until
// its owner calls Take.
type Registry struct {
	mu    sync.Mutex
	items map[uint32]*Handle
}

func NewRegistry() *Registry {
	return &Registry{
		items: make(map[uint32]*Handle),
	}
}

// Register creates a handle derived from parent and stores it under id.
func (r *Registry) Register(parent context.Context, id uint32) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[id]; exists {
		return nil, fmt.Errorf("%w: id %d", ErrHandleExists, id)
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{id: id, ctx: ctx, cancel: cancel}
	r.items[id] = h
	return h, nil
}

// Cancel signals the handle stored under id and reports whether one existed.
// The entry stays registered; the owning operation removes it with Take.
func (r *Registry) Cancel(id uint32) bool {
	r.mu.Lock()
	h, ok := r.items[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.Cancel()
	return true
}

// Take removes and returns the handle under id; a later Cancel for id is a
// no-op. The caller still owns the handle and must Cancel it when done.
func (r *Registry) Take(id uint32) (*Handle, bool) {
	r.mu.Lock()
	h, ok := r.items[id]
	if ok {
		delete(r.items, id)
	}
	r.mu.Unlock()
	return h, ok
}

// CancelAll signals every registered handle.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.items))
	for _, h := range r.items {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
	return len(handles)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
