package generics

import (
	"sync/atomic"

	"gsubst/internal/types"
)

var envSeq atomic.Uint32

// Environment binds a signature's type parameters to archetypes.
type Environment struct {
	sig *Signature
	id  types.EnvID
}

// Environment returns the signature's generic environment.
func (s *Signature) Environment() *Environment {
	if s == nil {
		return nil
	}
	s.envOnce.Do(func() {
		s.env = &Environment{sig: s, id: types.EnvID(envSeq.Add(1))}
	})
	return s.env
}

// Signature returns the signature the environment was built from.
func (e *Environment) Signature() *Signature { return e.sig }

// ID identifies the environment in archetype descriptors.
func (e *Environment) ID() types.EnvID { return e.id }

// MapTypeIntoContext replaces every type parameter in t with its archetype.
// Parameters fixed to a concrete type map to that type instead.
func (e *Environment) MapTypeIntoContext(t types.TypeID) types.TypeID {
	if e == nil {
		return t
	}
	return types.Subst(e.sig.in, t, intoContext{env: e})
}

// ArchetypeFor returns the archetype standing for the type parameter iface.
func (e *Environment) ArchetypeFor(iface types.TypeID) types.TypeID {
	in := e.sig.in
	iface = in.Canonical(iface)
	if concrete, ok := e.sig.ConcreteType(iface); ok {
		return e.MapTypeIntoContext(concrete)
	}
	kind := types.ArchetypePrimary
	if in.IsParameterPack(in.RootParam(iface)) {
		kind = types.ArchetypePack
	}
	superclass := e.sig.SuperclassBound(iface)
	if superclass != types.NoTypeID {
		superclass = e.MapTypeIntoContext(superclass)
	}
	return in.Archetype(kind, iface, e.id, superclass, e.sig.ConformsTo(iface))
}

type intoContext struct {
	env *Environment
}

func (c intoContext) SubstituteType(id types.TypeID) types.TypeID {
	if c.env.sig.in.Kind(id) != types.KindGenericParam {
		return types.NoTypeID
	}
	if c.env.sig.ParamIndex(mustKey(c.env.sig.in, id)) < 0 {
		return types.NoTypeID
	}
	arch := c.env.ArchetypeFor(id)
	if c.env.sig.in.IsParameterPack(id) {
		return c.env.sig.in.SingletonPackExpansion(arch)
	}
	return arch
}

func (c intoContext) ProjectMember(origBase, _ types.TypeID, proto types.ProtocolID, assoc uint32, _ int) types.TypeID {
	in := c.env.sig.in
	if !in.IsTypeParameter(origBase) {
		return types.NoTypeID
	}
	return c.env.ArchetypeFor(in.Member(origBase, proto, assoc))
}

func (c intoContext) Options() types.SubstOptions { return types.PreservePackExpansionLevel }

func mustKey(in *types.Interner, id types.TypeID) types.ParamKey {
	key, _ := in.Key(id)
	return key
}

// MapTypeOutOfContext replaces every primary or pack archetype in t with its
// interface type. Opaque archetypes are left alone.
func MapTypeOutOfContext(in *types.Interner, t types.TypeID) types.TypeID {
	return types.Transform(in, t, func(id types.TypeID) types.TypeID {
		info, ok := in.ArchetypeInfo(id)
		if !ok || info.Kind == types.ArchetypeOpaque {
			return types.NoTypeID
		}
		return info.Interface
	}, types.SubstitutePrimaryArchetypes|types.PreservePackExpansionLevel)
}
