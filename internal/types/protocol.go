package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// ProtocolID identifies a protocol declaration.
type ProtocolID uint32

// NoProtocolID marks the absence of a protocol.
const NoProtocolID ProtocolID = 0

// InvertibleKind marks the structural protocols every type conforms to unless
// suppressed. They are resolved through the global table, never through
// conformance paths.
type InvertibleKind uint8

const (
	NotInvertible InvertibleKind = iota
	InvertibleCopyable
	InvertibleEscapable
)

// AssocRequirement states that Subject, written in terms of the protocol's
// Self parameter, conforms to Proto. Subject == Self marks an inherited protocol.
type AssocRequirement struct {
	Subject TypeID
	Proto   ProtocolID
}

// ProtocolInfo stores metadata for a protocol declaration.
type ProtocolInfo struct {
	Name           string
	AssocTypes     []string
	Requirements   []AssocRequirement
	Invertible     InvertibleKind
	SelfConforming bool
}

// RegisterProtocol allocates a protocol declaration slot.
func (in *Interner) RegisterProtocol(name string, assocTypes ...string) ProtocolID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.protocols = append(in.protocols, ProtocolInfo{
		Name:       name,
		AssocTypes: slices.Clone(assocTypes),
	})
	slot, err := safecast.Conv[uint32](len(in.protocols) - 1)
	if err != nil {
		panic(fmt.Errorf("protocol table overflow: %w", err))
	}
	return ProtocolID(slot)
}

// SetProtocolRequirements stores the requirement signature of proto.
func (in *Interner) SetProtocolRequirements(proto ProtocolID, reqs []AssocRequirement) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if proto == NoProtocolID || int(proto) >= len(in.protocols) {
		return
	}
	in.protocols[proto].Requirements = slices.Clone(reqs)
}

// MarkInvertible flags proto as one of the invertible marker protocols.
func (in *Interner) MarkInvertible(proto ProtocolID, kind InvertibleKind) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if proto == NoProtocolID || int(proto) >= len(in.protocols) {
		return
	}
	in.protocols[proto].Invertible = kind
}

// MarkSelfConforming allows `any proto` to conform to proto.
func (in *Interner) MarkSelfConforming(proto ProtocolID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if proto == NoProtocolID || int(proto) >= len(in.protocols) {
		return
	}
	in.protocols[proto].SelfConforming = true
}

// Protocol returns metadata for proto.
func (in *Interner) Protocol(proto ProtocolID) (ProtocolInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if proto == NoProtocolID || int(proto) >= len(in.protocols) {
		return ProtocolInfo{}, false
	}
	return in.protocols[proto], true
}

// Protocols lists every registered protocol in declaration order.
func (in *Interner) Protocols() []ProtocolID {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]ProtocolID, 0, len(in.protocols)-1)
	for i := 1; i < len(in.protocols); i++ {
		out = append(out, ProtocolID(i))
	}
	return out
}

// ProtocolName returns the declared name of proto.
func (in *Interner) ProtocolName(proto ProtocolID) string {
	info, ok := in.Protocol(proto)
	if !ok {
		return "?"
	}
	return info.Name
}

// SelfParam is the `Self` parameter of every protocol signature.
func (in *Interner) SelfParam() TypeID {
	return in.Param(0, 0, false)
}

// Member returns the dependent member type base.assoc, where assoc indexes
// proto's associated types.
func (in *Interner) Member(base TypeID, proto ProtocolID, assoc uint32) TypeID {
	return in.Intern(Type{Kind: KindDependentMember, Elem: base, Payload: uint32(proto), Index: assoc})
}

// MemberNamed looks up an associated type by name.
func (in *Interner) MemberNamed(base TypeID, proto ProtocolID, name string) (TypeID, bool) {
	info, ok := in.Protocol(proto)
	if !ok {
		return NoTypeID, false
	}
	idx := slices.Index(info.AssocTypes, name)
	if idx < 0 {
		return NoTypeID, false
	}
	assoc, err := safecast.Conv[uint32](idx)
	if err != nil {
		return NoTypeID, false
	}
	return in.Member(base, proto, assoc), true
}

// AssocName returns the name of the associated type of a member type.
func (in *Interner) AssocName(proto ProtocolID, assoc uint32) string {
	info, ok := in.Protocol(proto)
	if !ok || int(assoc) >= len(info.AssocTypes) {
		return "?"
	}
	return info.AssocTypes[assoc]
}
