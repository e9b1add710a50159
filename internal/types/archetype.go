package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// EnvID identifies the generic environment an archetype belongs to.
type EnvID uint32

// OpaqueID identifies an opaque result type declaration.
type OpaqueID uint32

// ArchetypeInfo stores what is known about an archetype beyond its identity.
type ArchetypeInfo struct {
	Kind       ArchetypeKind
	Interface  TypeID
	Env        EnvID
	Opaque     OpaqueID
	Superclass TypeID
	ConformsTo []ProtocolID
}

// IsRoot reports whether the archetype stands for a generic parameter rather
// than a dependent member.
func (a ArchetypeInfo) IsRoot(in *Interner) bool {
	return in.Kind(a.Interface) == KindGenericParam
}

// Requires reports whether the archetype's requirements include proto.
func (a ArchetypeInfo) Requires(proto ProtocolID) bool {
	return slices.Contains(a.ConformsTo, proto)
}

// OpaqueInfo stores metadata for an opaque result type.
type OpaqueInfo struct {
	Name       string
	Module     string
	Underlying TypeID
	Resilient  bool
	ConformsTo []ProtocolID
}

// Archetype returns the primary or pack archetype of iface inside env.
// The first call for a given (kind, iface, env) fixes its info.
func (in *Interner) Archetype(kind ArchetypeKind, iface TypeID, env EnvID, superclass TypeID, conformsTo []ProtocolID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	t := Type{Kind: KindArchetype, Index: uint32(kind), Elem: iface, Payload: uint32(env)}
	if id, ok := in.index[t]; ok {
		return id
	}
	id := in.internLocked(t)
	in.archetypes[id] = ArchetypeInfo{
		Kind:       kind,
		Interface:  iface,
		Env:        env,
		Superclass: superclass,
		ConformsTo: slices.Clone(conformsTo),
	}
	return id
}

// RegisterOpaque allocates an opaque result type declaration.
func (in *Interner) RegisterOpaque(info OpaqueInfo) OpaqueID {
	in.mu.Lock()
	defer in.mu.Unlock()
	info.ConformsTo = slices.Clone(info.ConformsTo)
	in.opaques = append(in.opaques, info)
	slot, err := safecast.Conv[uint32](len(in.opaques) - 1)
	if err != nil {
		panic(fmt.Errorf("opaque table overflow: %w", err))
	}
	return OpaqueID(slot)
}

// Opaque returns metadata for an opaque declaration.
func (in *Interner) Opaque(id OpaqueID) (OpaqueInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == 0 || int(id) >= len(in.opaques) {
		return OpaqueInfo{}, false
	}
	return in.opaques[id], true
}

// OpaqueArchetype returns the archetype standing for the opaque type.
func (in *Interner) OpaqueArchetype(id OpaqueID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	iface := in.internLocked(MakeParam(0, 0, false))
	t := Type{Kind: KindArchetype, Index: uint32(ArchetypeOpaque), Elem: iface, Payload: uint32(id)}
	if existing, ok := in.index[t]; ok {
		return existing
	}
	arch := in.internLocked(t)
	var conforms []ProtocolID
	if int(id) < len(in.opaques) {
		conforms = slices.Clone(in.opaques[id].ConformsTo)
	}
	in.archetypes[arch] = ArchetypeInfo{
		Kind:       ArchetypeOpaque,
		Interface:  iface,
		Opaque:     id,
		ConformsTo: conforms,
	}
	return arch
}

// ArchetypeInfo returns metadata for an archetype type.
func (in *Interner) ArchetypeInfo(id TypeID) (ArchetypeInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info, ok := in.archetypes[id]
	return info, ok
}
