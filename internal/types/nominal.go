package types

import (
	"fmt"

	"fortio.org/safecast"
)

// NominalID identifies a nominal type declaration (struct, class, enum).
type NominalID uint32

// NominalInfo stores metadata for a nominal declaration.
type NominalInfo struct {
	Name  string
	Class bool
}

// RegisterNominal allocates a nominal declaration slot.
func (in *Interner) RegisterNominal(name string, class bool) NominalID {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.nominals = append(in.nominals, NominalInfo{Name: name, Class: class})
	slot, err := safecast.Conv[uint32](len(in.nominals) - 1)
	if err != nil {
		panic(fmt.Errorf("nominal table overflow: %w", err))
	}
	return NominalID(slot)
}

// NominalInfo returns metadata for the declaration.
func (in *Interner) NominalInfo(decl NominalID) (NominalInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if decl == 0 || int(decl) >= len(in.nominals) {
		return NominalInfo{}, false
	}
	return in.nominals[decl], true
}

// Nominal returns the nominal type decl<args...>.
func (in *Interner) Nominal(decl NominalID, args []TypeID) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(Type{Kind: KindNominal, Index: uint32(decl), Payload: in.listLocked(args)})
}

// NominalDecl returns the declaration of a nominal type.
func (in *Interner) NominalDecl(id TypeID) (NominalID, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindNominal {
		return 0, false
	}
	return NominalID(tt.Index), true
}
