package lintas

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handle ties one logical request id to the context its transport call runs
// under. Canceling the handle cancels that context with an ErrCanceled cause.
type Handle struct {
	id       string
	ctx      context.Context
	cancel   context.CancelCauseFunc
	registry *RequestRegistry
}

// ID returns the request id the handle was registered under.
func (h *Handle) ID() string { return h.id }

// Context returns the context the request must run under.
func (h *Handle) Context() context.Context { return h.ctx }

// Done is closed once the handle is canceled.
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// Canceled reports whether the handle was canceled, either through the
// registry or by the parent context.
func (h *Handle) Canceled() bool { return h.ctx.Err() != nil }

// Release removes the handle from its registry without canceling the
// operation, but only while it is still the live handle for its id. A
// pre-empted handle never evicts its successor. The handle's context
// resources are freed either way.
func (h *Handle) Release() {
	if h.registry != nil {
		h.registry.release(h)
	}
	h.cancel(nil)
}

// CancelListener observes cancellations, e.g. for metrics. scope is one of
// "exact", "prefix", "all" or "preempt". It runs under the registry lock and
// must not call back into the registry.
type CancelListener func(scope, id string)

// RequestRegistry tracks at most one live Handle per request id. It is safe
// for concurrent use; every mutation happens under a single lock so callers
// never observe a partial update.
type RequestRegistry struct {
	mu       sync.Mutex
	handles  map[string]*Handle
	listener CancelListener
}

// NewRequestRegistry returns an empty registry.
func NewRequestRegistry() *RequestRegistry {
	return &RequestRegistry{
		handles: make(map[string]*Handle),
	}
}

// SetCancelListener installs fn as the cancellation observer.
func (r *RequestRegistry) SetCancelListener(fn CancelListener) {
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
}

// Register creates a handle for id derived from parent. An existing handle
// for the same id is canceled before the new one is stored. An empty id
// yields a handle that is not tracked and can only be canceled through
// parent.
func (r *RequestRegistry) Register(parent context.Context, id string) *Handle {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	h := &Handle{id: id, ctx: ctx, cancel: cancel}
	if id == "" {
		return h
	}
	h.registry = r

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.handles[id]; ok {
		r.cancelLocked(prev, "preempt", "superseded by a new request with the same id")
	}
	r.handles[id] = h
	return h
}

// Cancel cancels and removes the handle for id. It is a no-op when id is not
// registered.
func (r *RequestRegistry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[id]
	if !ok {
		return false
	}
	r.cancelLocked(h, "exact", "canceled by id")
	return true
}

// CancelByPrefix cancels and removes every handle whose id starts with
// prefix and returns the canceled ids in sorted order.
func (r *RequestRegistry) CancelByPrefix(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var canceled []string
	for id, h := range r.handles {
		if strings.HasPrefix(id, prefix) {
			r.cancelLocked(h, "prefix", "canceled by prefix "+prefix)
			canceled = append(canceled, id)
		}
	}
	sort.Strings(canceled)
	return canceled
}

// CancelAll cancels and removes every handle, returning how many were live.
func (r *RequestRegistry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.handles)
	for _, h := range r.handles {
		r.cancelLocked(h, "all", "canceled all requests")
	}
	return n
}

// Settle removes the handle for id without canceling it. Settling an id that
// is not registered is a no-op.
func (r *RequestRegistry) Settle(id string) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

// Len returns the number of live handles.
func (r *RequestRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// IDs returns the live request ids in sorted order.
func (r *RequestRegistry) IDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Has reports whether id has a live handle.
func (r *RequestRegistry) Has(id string) bool {
	r.mu.Lock()
	_, ok := r.handles[id]
	r.mu.Unlock()
	return ok
}

func (r *RequestRegistry) release(h *Handle) {
	r.mu.Lock()
	if cur, ok := r.handles[h.id]; ok && cur == h {
		delete(r.handles, h.id)
	}
	r.mu.Unlock()
}

// cancelLocked must be called with r.mu held.
func (r *RequestRegistry) cancelLocked(h *Handle, scope, reason string) {
	h.cancel(fmt.Errorf("%w: %s (%s)", ErrCanceled, h.id, reason))
	delete(r.handles, h.id)
	if r.listener != nil {
		r.listener(scope, h.id)
	}
}
