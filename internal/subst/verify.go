package subst

import (
	"fmt"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// ViolationKind classifies structural inconsistencies found by Verify.
type ViolationKind uint8

const (
	// ViolationNotConcrete: a concrete substituted type carries non-concrete evidence.
	ViolationNotConcrete ViolationKind = iota + 1
	// ViolationWrongType: the witness conforms a different type.
	ViolationWrongType
	// ViolationNotSelfConformance: an existential carries a normal witness.
	ViolationNotSelfConformance
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationNotConcrete:
		return "not-concrete"
	case ViolationWrongType:
		return "wrong-type"
	case ViolationNotSelfConformance:
		return "not-self-conformance"
	default:
		return "unknown"
	}
}

// Violation is one finding of Verify.
type Violation struct {
	Kind        ViolationKind
	Index       int // conformance ordinal
	Requirement generics.Requirement
	SubstType   types.TypeID
	WitnessType types.TypeID
	Message     string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (#%d): %s", v.Kind, v.Index, v.Message)
}

// Verify checks that the stored evidence matches the substituted types.
// Invalid evidence and requirements whose substituted type is not fully
// concrete are skipped.
func (m Map) Verify() []Violation {
	if m.s == nil {
		return nil
	}
	in := m.s.ctx.types
	var out []Violation
	idx := 0
	for _, req := range m.s.sig.Requirements() {
		if req.Kind != generics.ReqConformance {
			continue
		}
		i := idx
		idx++
		conf := m.s.conformances[i]
		if conf.IsInvalid() {
			continue
		}
		substType := in.Canonical(m.SubstType(req.Subject))
		report := func(kind ViolationKind, witness types.TypeID, format string, args ...any) {
			out = append(out, Violation{
				Kind:        kind,
				Index:       i,
				Requirement: req,
				SubstType:   substType,
				WitnessType: witness,
				Message:     fmt.Sprintf(format, args...),
			})
		}

		tt, ok := in.Lookup(substType)
		if !ok || in.IsTypeVariableOrMember(substType) || tt.Kind == types.KindUnresolved || in.HasError(substType) {
			continue
		}
		if in.IsTypeParameter(substType) || tt.Kind == types.KindArchetype || tt.Kind == types.KindPack {
			continue
		}
		if tt.Kind == types.KindExistential {
			info, _ := in.Protocol(req.Proto)
			if !info.SelfConforming {
				continue
			}
			if _, ok := conf.Concrete().(*SelfConformance); !ok {
				report(ViolationNotSelfConformance, types.NoTypeID, "existential %s must carry a self-conformance to %s, got %s",
					types.Label(in, substType), in.ProtocolName(req.Proto), conf.Label(in))
			}
			continue
		}
		if !conf.IsConcrete() {
			report(ViolationNotConcrete, types.NoTypeID, "concrete type %s has %s conformance to %s",
				types.Label(in, substType), conf.Kind(), in.ProtocolName(req.Proto))
			continue
		}
		witness := conf.concrete.Type()
		if in.HasTypeParameter(witness) && !in.HasTypeParameter(substType) {
			witness = conf.concrete.genericContext().Environment().MapTypeIntoContext(witness)
		}
		if !in.Equal(witness, substType) {
			report(ViolationWrongType, witness, "conformance %s does not conform %s",
				conf.Label(in), types.Label(in, substType))
		}
	}
	return out
}
