package fixture

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"

	"gsubst/internal/diag"
	"gsubst/internal/generics"
	"gsubst/internal/subst"
	"gsubst/internal/types"
)

// MapKind selects how a map entry is constructed.
type MapKind string

const (
	// MapGet: signature, replacements, optional context, lookup and
	// conformances.
	MapGet MapKind = "get"
	// MapIdentity: signature.
	MapIdentity MapKind = "identity"
	// MapProtocol: protocol, self, optional context.
	MapProtocol MapKind = "protocol"
	// MapOverride: base and derived members as "Parent.name".
	MapOverride MapKind = "override"
	// MapContext: nominal and target declarations.
	MapContext MapKind = "context"
	// MapCombine: first, second, how, boundaries and signature.
	MapCombine MapKind = "combine"
	// MapCompose: first substituted by second.
	MapCompose MapKind = "compose"
	// MapOutOfContext: first with archetypes mapped out of context.
	MapOutOfContext MapKind = "out-of-context"
	// MapExpansion: first seen from module with maximal or minimal expansion.
	MapExpansion MapKind = "expansion"
	// MapCanonical: first canonicalized.
	MapCanonical MapKind = "canonical"
)

// specError is a problem with an entry that is not a substitution fault.
type specError struct {
	code diag.Code
	err  error
}

func (e *specError) Error() string { return e.err.Error() }

func specErrorf(code diag.Code, format string, args ...any) error {
	return &specError{code: code, err: fmt.Errorf(format, args...)}
}

func wrapSpec(code diag.Code, err error) error {
	if err == nil {
		return nil
	}
	return &specError{code: code, err: err}
}

func (w *World) defineMap(spec *MapSpec) {
	name := norm.NFC.String(spec.Name)
	entry := "map[" + name + "]"
	if name == "" {
		w.errorf(diag.FixUnknownName, entry, "map without a name")
		return
	}
	if _, dup := w.maps[name]; dup {
		w.errorf(diag.FixDuplicateName, entry, "map %q declared twice", name)
		return
	}
	kind := MapKind(spec.Kind)
	if kind == "" {
		kind = MapGet
	}
	m, err := w.buildMap(kind, spec)
	e := &MapEntry{Name: name, Kind: kind, Loc: w.loc(entry), ExpectFault: spec.ExpectFault}
	if err != nil {
		if se, ok := err.(*specError); ok {
			w.errorf(se.code, entry, "%v", se.err)
			return
		}
		fault, ok := err.(*subst.FaultError)
		if !ok {
			w.errorf(diag.FixParse, entry, "%v", err)
			return
		}
		e.Fault = fault
	} else {
		e.Map = m
	}
	w.maps[name] = e
	w.Maps = append(w.Maps, e)
}

func (w *World) buildMap(kind MapKind, spec *MapSpec) (subst.Map, error) {
	ctx := w.Ctx
	switch kind {
	case MapGet:
		return w.buildGet(spec)

	case MapIdentity:
		sig, _, err := w.parseSignature(nil, spec.Signature)
		if err != nil {
			return subst.Map{}, wrapSpec(diag.FixBadSignature, err)
		}
		return ctx.IdentityMap(sig), nil

	case MapProtocol:
		proto, ok := w.Protocol(spec.Protocol)
		if !ok {
			return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown protocol %q", spec.Protocol)
		}
		_, sc, err := w.parseSignature(nil, spec.Context)
		if err != nil {
			return subst.Map{}, wrapSpec(diag.FixBadSignature, err)
		}
		self, err := w.parseType(sc, spec.Self)
		if err != nil {
			return subst.Map{}, wrapSpec(diag.FixBadType, err)
		}
		conf := subst.Abstract(proto)
		if !w.Types.IsTypeParameter(self) {
			conf = ctx.Table().Lookup(self, proto)
		}
		return guard(func() subst.Map { return ctx.ProtocolSubstitutions(proto, self, conf) })

	case MapOverride:
		base, derived := w.Member(spec.Base), w.Member(spec.Derived)
		if base == nil || derived == nil {
			return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown member %q or %q", spec.Base, spec.Derived)
		}
		return guard(func() subst.Map { return ctx.OverrideSubstitutions(base, derived) })

	case MapContext:
		nominal, target := w.Decl(spec.Nominal), w.Decl(spec.Target)
		if nominal == nil || target == nil {
			return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown declaration %q or %q", spec.Nominal, spec.Target)
		}
		return guard(func() subst.Map {
			return ctx.ContextSubstitutionMap(nominal, target, nominal.Sig.Environment())
		})

	case MapCombine:
		first, second, err := w.operands(spec, true)
		if err != nil {
			return subst.Map{}, err
		}
		var how subst.CombineKind
		switch spec.How {
		case "", "depth":
			how = subst.CombineAtDepth
		case "index":
			how = subst.CombineAtIndex
		default:
			return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown combine mode %q", spec.How)
		}
		sig, _, err := w.parseSignature(nil, spec.Signature)
		if err != nil {
			return subst.Map{}, wrapSpec(diag.FixBadSignature, err)
		}
		return guard(func() subst.Map {
			return ctx.Combine(first, second, how, spec.FirstBoundary, spec.SecondBoundary, sig)
		})

	case MapCompose:
		first, second, err := w.operands(spec, true)
		if err != nil {
			return subst.Map{}, err
		}
		return guard(func() subst.Map { return first.SubstMap(second, 0) })

	case MapOutOfContext, MapExpansion, MapCanonical:
		first, _, err := w.operands(spec, false)
		if err != nil {
			return subst.Map{}, err
		}
		switch kind {
		case MapOutOfContext:
			return guard(first.MapReplacementTypesOutOfContext)
		case MapExpansion:
			ec := subst.ExpansionContext{Module: norm.NFC.String(spec.Module), Expansion: subst.ExpansionMinimal}
			if ec.Module == "" {
				ec.Module = w.Module
			}
			if spec.Maximal {
				ec.Expansion = subst.ExpansionMaximal
			}
			return guard(func() subst.Map { return first.MapIntoTypeExpansionContext(ec) })
		default:
			return first.Canonical(true), nil
		}

	default:
		return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown map kind %q", kind)
	}
}

// operands resolves the first (and optionally second) map an entry builds on.
func (w *World) operands(spec *MapSpec, needSecond bool) (first, second subst.Map, err error) {
	resolve := func(name string) (subst.Map, error) {
		e := w.Map(name)
		if e == nil {
			return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown map %q", name)
		}
		if e.Fault != nil {
			return subst.Map{}, specErrorf(diag.FixUnknownName, "map %q failed to build", name)
		}
		return e.Map, nil
	}
	if first, err = resolve(spec.First); err != nil {
		return
	}
	if needSecond {
		second, err = resolve(spec.Second)
	}
	return
}

func (w *World) buildGet(spec *MapSpec) (subst.Map, error) {
	ctx := w.Ctx
	sig, _, err := w.parseSignature(nil, spec.Signature)
	if err != nil {
		return subst.Map{}, wrapSpec(diag.FixBadSignature, err)
	}
	if sig == nil {
		return subst.Map{}, specErrorf(diag.FixBadSignature, "get needs a signature")
	}
	_, sc, err := w.parseSignature(nil, spec.Context)
	if err != nil {
		return subst.Map{}, wrapSpec(diag.FixBadSignature, err)
	}
	repl := make([]types.TypeID, len(spec.Replacements))
	for i, text := range spec.Replacements {
		if repl[i], err = w.parseType(sc, text); err != nil {
			return subst.Map{}, wrapSpec(diag.FixBadType, err)
		}
	}
	var lookup subst.ConformanceFunc
	switch spec.Lookup {
	case "", "global":
		lookup = subst.GlobalLookup(ctx)
	case "abstract":
		lookup = subst.AbstractLookup
	default:
		return subst.Map{}, specErrorf(diag.FixUnknownName, "unknown lookup %q", spec.Lookup)
	}

	params := sig.Params()
	if len(repl) != len(params) {
		// Let the constructor report the count fault.
		return ctx.TryGet(sig, repl, nil)
	}
	m, err := ctx.TryGetWith(sig, subst.NewInFlight(ctx, subst.Funcs{
		Types: func(t types.TypeID) types.TypeID {
			if i := slices.Index(params, t); i >= 0 {
				return repl[i]
			}
			return types.NoTypeID
		},
		Conformances: lookup,
	}, 0))
	if err != nil || len(spec.Conformances) == 0 {
		return m, err
	}
	return w.overrideConformances(sig, sc, m, spec.Conformances)
}

// overrideConformances replaces computed evidence with explicit entries:
// "global" keeps the computed one, "abstract" and "invalid" force that
// kind, anything else is a type whose table conformance is used.
func (w *World) overrideConformances(sig *generics.Signature, sc *scope, m subst.Map, entries []string) (subst.Map, error) {
	reqs := sig.ConformanceRequirements()
	computed := m.Conformances()
	confs := make([]subst.ConformanceRef, len(entries))
	for i, text := range entries {
		var proto types.ProtocolID
		if i < len(reqs) {
			proto = reqs[i].Proto
		}
		switch text {
		case "global":
			if i < len(computed) {
				confs[i] = computed[i]
			}
		case "abstract":
			confs[i] = subst.Abstract(proto)
		case "invalid":
			confs[i] = subst.Invalid()
		default:
			t, err := w.parseType(sc, text)
			if err != nil {
				return subst.Map{}, wrapSpec(diag.FixBadType, err)
			}
			confs[i] = w.Ctx.Table().Lookup(t, proto)
		}
	}
	return w.Ctx.TryGet(sig, m.ReplacementTypes(), confs)
}
