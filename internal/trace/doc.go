// Package trace records how substitution maps are built and queried.
//
// Events are grouped by scope, coarsest first:
//
//   - ScopeSession: one CLI invocation or one fixture check
//   - ScopeBuild: construction of a map (get, subst, builders)
//   - ScopeQuery: lookupConformance and lookupSubstitution calls
//   - ScopeStep: individual conformance-path steps
//
// Tracers travel with a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeBuild, "subst.get", 0)
//	defer span.End("")
package trace
