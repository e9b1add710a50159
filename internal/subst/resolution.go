package subst

import "gsubst/internal/generics"

type resolutionKey struct {
	normal *Normal
	step   generics.PathStep
}

// Resolution tracks the associated-conformance computations active on the
// current call chain. It is threaded explicitly through conformance lookup
// and is not safe for concurrent use; each top-level query owns one.
type Resolution struct {
	active map[resolutionKey]struct{}
}

// NewResolution returns an empty resolution context.
func NewResolution() *Resolution {
	return &Resolution{active: make(map[resolutionKey]struct{}, 4)}
}

// Active reports whether n is already resolving step.
func (r *Resolution) Active(n *Normal, step generics.PathStep) bool {
	if r == nil {
		return false
	}
	_, ok := r.active[resolutionKey{normal: n, step: step}]
	return ok
}

// Depth returns the number of active computations.
func (r *Resolution) Depth() int {
	if r == nil {
		return 0
	}
	return len(r.active)
}

func (r *Resolution) begin(n *Normal, step generics.PathStep) bool {
	key := resolutionKey{normal: n, step: step}
	if _, ok := r.active[key]; ok {
		return false
	}
	r.active[key] = struct{}{}
	return true
}

func (r *Resolution) end(n *Normal, step generics.PathStep) {
	delete(r.active, resolutionKey{normal: n, step: step})
}
