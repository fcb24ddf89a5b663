package webhook

import "context"

// Router maps topics to their handlers. The table is copied at construction
// and never mutated afterwards, so concurrent deliveries read it without
// locking.
type Router struct {
	routes map[Topic]HandlerFunc
}

// NewRouter builds an immutable routing table from routes. Aliased topics
// (e.g. orders/updated and orders/cancelled) may point at the same function.
func NewRouter(routes map[Topic]HandlerFunc) *Router {
	table := make(map[Topic]HandlerFunc, len(routes))
	for t, h := range routes {
		table[t] = h
	}
	return &Router{routes: table}
}

// Resolve returns the handler for topic. Topics absent from the table resolve
// to the acknowledge-and-skip fallback with registered=false, so the caller
// can log the routing gap distinctly from an error.
func (r *Router) Resolve(topic Topic) (h HandlerFunc, registered bool) {
	if h, ok := r.routes[topic]; ok {
		return h, true
	}
	return skipHandler, false
}

// Topics returns the number of registered topics.
func (r *Router) Topics() int { return len(r.routes) }

// skipHandler acknowledges a delivery without processing it.
func skipHandler(_ context.Context, _ *Delivery) Outcome {
	return Skipped("no handler registered for topic")
}
