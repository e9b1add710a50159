package subst

import (
	"errors"
	"fmt"
	"sync"

	"gsubst/internal/types"
)

// ErrDuplicateConformance is returned when a nominal declaration registers
// two conformances to the same protocol.
var ErrDuplicateConformance = errors.New("duplicate conformance")

type tableKey struct {
	decl  types.NominalID
	proto types.ProtocolID
}

// Table is the global conformance oracle: the declared normal conformances
// of nominal types plus the structural rules for every other type kind.
type Table struct {
	ctx     *Context
	mu      sync.RWMutex
	normals map[tableKey]*Normal
}

func newTable(ctx *Context) *Table {
	return &Table{ctx: ctx, normals: make(map[tableKey]*Normal, 16)}
}

// Register records n as the conformance of its nominal declaration.
func (t *Table) Register(n *Normal) error {
	decl, ok := t.ctx.types.NominalDecl(n.typ)
	if !ok {
		return fmt.Errorf("register conformance %s: conforming type is not nominal", n.Label())
	}
	key := tableKey{decl: decl, proto: n.proto}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.normals[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConformance, n.Label())
	}
	t.normals[key] = n
	return nil
}

// Normal returns the declared conformance of decl to proto.
func (t *Table) Normal(decl types.NominalID, proto types.ProtocolID) (*Normal, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.normals[tableKey{decl: decl, proto: proto}]
	return n, ok
}

// Len returns the number of registered conformances.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.normals)
}

// Lookup finds the conformance of typ to proto, or Invalid.
func (t *Table) Lookup(typ types.TypeID, proto types.ProtocolID) ConformanceRef {
	return t.ctx.lookupGlobal(NewResolution(), typ, proto)
}

func (c *Context) lookupGlobal(rc *Resolution, typ types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := c.types
	typ = in.Canonical(typ)
	info, ok := in.Protocol(proto)
	if !ok {
		return Invalid()
	}
	tt, ok := in.Lookup(typ)
	if !ok {
		return Invalid()
	}

	switch tt.Kind {
	case types.KindError, types.KindUnresolved, types.KindInvalid:
		return Invalid()

	case types.KindGenericParam, types.KindDependentMember, types.KindTypeVar:
		return Abstract(proto)

	case types.KindArchetype:
		arch, _ := in.ArchetypeInfo(typ)
		if arch.Requires(proto) || info.Invertible != types.NotInvertible {
			return Abstract(proto)
		}
		if arch.Superclass != types.NoTypeID {
			return c.lookupGlobal(rc, arch.Superclass, proto)
		}
		return Invalid()

	case types.KindExistential:
		if types.ProtocolID(tt.Payload) == proto && info.SelfConforming {
			return ForConcrete(c.selfConformance(typ, proto))
		}
		if info.Invertible != types.NotInvertible {
			return ForConcrete(c.builtin(typ, proto, false))
		}
		return Invalid()

	case types.KindPack:
		elems := in.Elems(typ)
		refs := make([]ConformanceRef, len(elems))
		for i, elem := range elems {
			if et, ok := in.Lookup(elem); ok && et.Kind == types.KindPackExpansion {
				elem = et.Elem
			}
			refs[i] = c.lookupGlobal(rc, elem, proto)
			if refs[i].IsInvalid() {
				return Invalid()
			}
		}
		return ForPack(c.PackConformanceFor(typ, proto, refs))

	case types.KindNominal:
		if n, ok := c.table.Normal(types.NominalID(tt.Index), proto); ok {
			return c.specializeFor(rc, n, typ)
		}
		if info.Invertible != types.NotInvertible {
			return ForConcrete(c.builtin(typ, proto, false))
		}
		return Invalid()

	case types.KindTuple, types.KindFn:
		if info.Invertible != types.NotInvertible {
			return ForConcrete(c.builtin(typ, proto, false))
		}
		return Invalid()

	default:
		return Invalid()
	}
}

// specializeFor binds a generic normal conformance to the arguments of typ.
// Conditional requirements that fail make the conformance invalid.
func (c *Context) specializeFor(rc *Resolution, n *Normal, typ types.TypeID) ConformanceRef {
	if n.sig == nil || n.typ == typ {
		return ForConcrete(n)
	}
	in := c.types
	args := in.Elems(typ)
	if len(args) != n.sig.NumParams() {
		return Invalid()
	}
	subs, err := c.TryGetWith(n.sig, NewInFlight(c, typeArray{ctx: c, sig: n.sig, types: args, lookup: GlobalLookup(c)}, 0).WithResolution(rc))
	if err != nil {
		return Invalid()
	}
	for _, ref := range subs.Conformances() {
		if ref.IsInvalid() || ref.IsMissing() {
			return Invalid()
		}
	}
	if subs.IsIdentity() {
		return ForConcrete(n)
	}
	return ForConcrete(c.Specialize(n, subs))
}

// forMissingOrInvalid records that the oracle had nothing for substType.
// Type parameters and error types get Invalid; concrete types get the
// missing marker so callers can diagnose them.
func (c *Context) forMissingOrInvalid(substType types.TypeID, proto types.ProtocolID) ConformanceRef {
	in := c.types
	if in.HasError(substType) || in.IsTypeParameter(substType) || substType == types.NoTypeID {
		return Invalid()
	}
	return ForConcrete(c.builtin(in.Canonical(substType), proto, true))
}
