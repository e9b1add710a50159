package subst

import (
	"strconv"

	"gsubst/internal/generics"
	"gsubst/internal/trace"
	"gsubst/internal/types"
)

// Get interns a map from explicit replacements and conformances aligned to
// sig. It panics with a *FaultError when the inputs violate the size or
// pack-ness invariants.
func (c *Context) Get(sig *generics.Signature, repl []types.TypeID, confs []ConformanceRef) Map {
	m, err := c.TryGet(sig, repl, confs)
	if err != nil {
		panic(err)
	}
	return m
}

// TryGet is Get returning the fault instead of panicking.
func (c *Context) TryGet(sig *generics.Signature, repl []types.TypeID, confs []ConformanceRef) (Map, error) {
	if sig == nil {
		return Map{}, nil
	}
	if err := c.validate(sig, repl, confs); err != nil {
		trace.Point(c.tracer, trace.ScopeBuild, "subst.fault", err.Error())
		return Map{}, err
	}
	s, fresh := c.pool.intern(c, sig, repl, confs)
	m := Map{s: s}
	if fresh && c.opts.VerifyOnConstruct {
		if violations := m.Verify(); len(violations) > 0 && c.opts.VerifyHook != nil {
			c.opts.VerifyHook(m, violations)
		}
	}
	return m, nil
}

func (c *Context) validate(sig *generics.Signature, repl []types.TypeID, confs []ConformanceRef) error {
	in := c.types
	params := sig.Params()
	if len(repl) != len(params) {
		return faultf(FaultReplacementCount, "signature %s has %d parameters, got %d replacements", sig, len(params), len(repl))
	}
	if n := sig.NumConformanceRequirements(); len(confs) != n {
		return faultf(FaultConformanceCount, "signature %s has %d conformance requirements, got %d conformances", sig, n, len(confs))
	}
	for i, p := range params {
		if repl[i] == types.NoTypeID {
			return faultf(FaultReplacementCount, "missing replacement for %s", types.Label(in, p))
		}
		if in.HasError(repl[i]) {
			continue
		}
		if in.IsParameterPack(p) != in.IsPack(repl[i]) {
			return faultf(FaultPackMismatch, "parameter %s replaced by %s", types.Label(in, p), types.Label(in, repl[i]))
		}
	}
	return nil
}

// GetWithTypes builds a map from replacements aligned to sig's parameters,
// resolving conformances with lookup.
func (c *Context) GetWithTypes(sig *generics.Signature, repl []types.TypeID, lookup ConformanceFunc) Map {
	return c.GetWith(sig, NewInFlight(c, typeArray{ctx: c, sig: sig, types: repl, lookup: lookup}, 0))
}

// GetWithFuncs builds a map computing each replacement with typeFn.
func (c *Context) GetWithFuncs(sig *generics.Signature, typeFn TypeFunc, lookup ConformanceFunc) Map {
	return c.GetWith(sig, NewInFlight(c, Funcs{Types: typeFn, Conformances: lookup}, 0))
}

// GetFromMap builds a map for sig whose queries are answered by other.
func (c *Context) GetFromMap(sig *generics.Signature, other Map) Map {
	return c.GetWith(sig, NewInFlight(c, queryMap{m: other}, 0))
}

// GetWith builds a map by applying ifs to every parameter and conformance
// requirement of sig.
func (c *Context) GetWith(sig *generics.Signature, ifs *InFlight) Map {
	m, err := c.TryGetWith(sig, ifs)
	if err != nil {
		panic(err)
	}
	return m
}

// TryGetWith is GetWith returning faults.
func (c *Context) TryGetWith(sig *generics.Signature, ifs *InFlight) (Map, error) {
	if sig == nil {
		return Map{}, nil
	}
	span := trace.Begin(c.tracer, trace.ScopeBuild, "subst.get", 0).
		WithSession(c.ID()).
		WithExtra("params", strconv.Itoa(sig.NumParams()))

	in := c.types
	params := sig.Params()
	repl := make([]types.TypeID, len(params))
	for i, p := range params {
		r := ifs.Type(p)
		if r == p && in.IsParameterPack(p) {
			r = in.SingletonPackExpansion(p)
		}
		repl[i] = r
	}

	reqs := sig.ConformanceRequirements()
	confs := make([]ConformanceRef, len(reqs))
	for i, req := range reqs {
		dep := in.Canonical(req.Subject)
		confs[i] = ifs.LookupConformance(dep, ifs.Type(dep), req.Proto, 0)
	}

	m, err := c.TryGet(sig, repl, confs)
	if err != nil {
		span.End(err.Error())
		return Map{}, err
	}
	detail := ""
	if c.tracer.Enabled() {
		detail = m.String()
	}
	span.End(detail)
	return m, nil
}
