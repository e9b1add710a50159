package types

import (
	"fmt"
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 8 {
		return "..."
	}
	if typesIn == nil {
		return "?"
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindError:
		return "<<error>>"
	case KindUnresolved:
		return "_"
	case KindTypeVar:
		return fmt.Sprintf("$T%d", tt.Index)
	case KindGenericParam:
		label := fmt.Sprintf("τ_%d_%d", tt.Depth, tt.Index)
		if tt.Pack {
			return "each " + label
		}
		return label
	case KindDependentMember:
		return labelDepth(typesIn, tt.Elem, depth+1) + "." + typesIn.AssocName(ProtocolID(tt.Payload), tt.Index)
	case KindNominal:
		name := "?"
		if info, ok := typesIn.NominalInfo(NominalID(tt.Index)); ok {
			name = info.Name
		}
		args := typesIn.List(tt.Payload)
		if len(args) == 0 {
			return name
		}
		return name + "<" + labelList(typesIn, args, depth) + ">"
	case KindTuple:
		return "(" + labelList(typesIn, typesIn.List(tt.Payload), depth) + ")"
	case KindFn:
		return "(" + labelList(typesIn, typesIn.List(tt.Payload), depth) + ") -> " + labelDepth(typesIn, tt.Elem, depth+1)
	case KindPack:
		return "Pack{" + labelList(typesIn, typesIn.List(tt.Payload), depth) + "}"
	case KindPackExpansion:
		return "repeat " + labelDepth(typesIn, tt.Elem, depth+1)
	case KindArchetype:
		kind := ArchetypeKind(tt.Index)
		if kind == ArchetypeOpaque {
			if info, ok := typesIn.Opaque(OpaqueID(tt.Payload)); ok {
				return "some " + info.Name
			}
			return "some ?"
		}
		prefix := "@"
		if kind == ArchetypePack {
			prefix = "@each "
		}
		return prefix + strings.TrimPrefix(labelDepth(typesIn, tt.Elem, depth+1), "each ")
	case KindExistential:
		return "any " + typesIn.ProtocolName(ProtocolID(tt.Payload))
	case KindAlias:
		return typesIn.Name(tt.Payload)
	default:
		return "?"
	}
}

func labelList(typesIn *Interner, ids []TypeID, depth int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = labelDepth(typesIn, id, depth+1)
	}
	return strings.Join(parts, ", ")
}
