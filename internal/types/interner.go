package types

import (
	"encoding/binary"
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the structural placeholder types.
type Builtins struct {
	Error      TypeID
	Unresolved TypeID
	EmptyPack  TypeID
	Unit       TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Equal descriptors always yield the same TypeID, so type equality is ID
// equality. All methods are safe for concurrent use.
type Interner struct {
	mu    sync.RWMutex
	types []Type
	props []Properties
	index map[Type]TypeID

	lists     [][]TypeID
	listIndex map[string]uint32

	names     []string
	nameIndex map[string]uint32

	protocols  []ProtocolInfo
	nominals   []NominalInfo
	opaques    []OpaqueInfo
	archetypes map[TypeID]ArchetypeInfo
	typeVars   uint32

	builtins Builtins
}

// NewInterner constructs an interner seeded with the placeholder types.
func NewInterner() *Interner {
	in := &Interner{
		index:      make(map[Type]TypeID, 64),
		listIndex:  make(map[string]uint32, 32),
		nameIndex:  make(map[string]uint32, 32),
		archetypes: make(map[TypeID]ArchetypeInfo, 16),
	}
	// reserve 0 everywhere as the invalid sentinel
	in.types = append(in.types, Type{Kind: KindInvalid})
	in.props = append(in.props, 0)
	in.lists = append(in.lists, nil)
	in.listIndex[""] = 0
	in.names = append(in.names, "")
	in.protocols = append(in.protocols, ProtocolInfo{})
	in.nominals = append(in.nominals, NominalInfo{})
	in.opaques = append(in.opaques, OpaqueInfo{})

	in.builtins.Error = in.Intern(Type{Kind: KindError})
	in.builtins.Unresolved = in.Intern(Type{Kind: KindUnresolved})
	in.builtins.EmptyPack = in.Intern(Type{Kind: KindPack})
	in.builtins.Unit = in.Intern(Type{Kind: KindTuple})
	return in
}

// Builtins returns TypeIDs for placeholder types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.RLock()
	id, ok := in.index[t]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(t)
}

func (in *Interner) internLocked(t Type) TypeID {
	if id, ok := in.index[t]; ok {
		return id
	}
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.props = append(in.props, in.computePropsLocked(t))
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.lookupLocked(id)
}

func (in *Interner) lookupLocked(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Kind is a shortcut for the kind of id, KindInvalid when unknown.
func (in *Interner) Kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// List returns the element list stored in a descriptor payload.
// The returned slice must not be modified.
func (in *Interner) List(slot uint32) []TypeID {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(slot) >= len(in.lists) {
		return nil
	}
	return in.lists[slot]
}

// listLocked interns an element list and returns its slot. Equal lists share a slot.
func (in *Interner) listLocked(ids []TypeID) uint32 {
	if len(ids) == 0 {
		return 0
	}
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(id))
	}
	key := string(buf)
	if slot, ok := in.listIndex[key]; ok {
		return slot
	}
	slot, err := safecast.Conv[uint32](len(in.lists))
	if err != nil {
		panic(fmt.Errorf("type list overflow: %w", err))
	}
	in.lists = append(in.lists, append([]TypeID(nil), ids...))
	in.listIndex[key] = slot
	return slot
}

func (in *Interner) nameLocked(name string) uint32 {
	if slot, ok := in.nameIndex[name]; ok {
		return slot
	}
	slot, err := safecast.Conv[uint32](len(in.names))
	if err != nil {
		panic(fmt.Errorf("name table overflow: %w", err))
	}
	in.names = append(in.names, name)
	in.nameIndex[name] = slot
	return slot
}

// Name returns the string stored in the name table.
func (in *Interner) Name(slot uint32) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(slot) >= len(in.names) {
		return ""
	}
	return in.names[slot]
}

// Composite constructors ------------------------------------------------------

// Param returns the generic parameter type at (depth, index).
func (in *Interner) Param(depth, index uint32, pack bool) TypeID {
	return in.Intern(MakeParam(depth, index, pack))
}

// FreshTypeVar returns a new inference variable.
func (in *Interner) FreshTypeVar() TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.typeVars++
	return in.internLocked(MakeTypeVar(in.typeVars))
}

// Tuple returns the tuple type with the given elements.
func (in *Interner) Tuple(elems []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(Type{Kind: KindTuple, Payload: in.listLocked(elems)})
}

// Fn returns the function type params -> result.
func (in *Interner) Fn(params []TypeID, result TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(Type{Kind: KindFn, Payload: in.listLocked(params), Elem: result})
}

// Pack returns the pack type with the given elements.
func (in *Interner) Pack(elems []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(Type{Kind: KindPack, Payload: in.listLocked(elems)})
}

// Expansion returns `repeat pattern` with the given count type.
func (in *Interner) Expansion(pattern, count TypeID) TypeID {
	return in.Intern(MakeExpansion(pattern, count))
}

// SingletonPackExpansion wraps a pack parameter as Pack{repeat each T}.
func (in *Interner) SingletonPackExpansion(param TypeID) TypeID {
	return in.Pack([]TypeID{in.Expansion(param, param)})
}

// Existential returns `any P`.
func (in *Interner) Existential(proto ProtocolID) TypeID {
	return in.Intern(MakeExistential(proto))
}

// Alias returns a named sugar type for underlying.
func (in *Interner) Alias(name string, underlying TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(Type{Kind: KindAlias, Elem: underlying, Payload: in.nameLocked(name)})
}

// Elems returns the element list of a tuple, pack, function or nominal type.
func (in *Interner) Elems(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return nil
	}
	switch tt.Kind {
	case KindTuple, KindPack, KindFn, KindNominal:
		return in.List(tt.Payload)
	default:
		return nil
	}
}
