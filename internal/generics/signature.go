package generics

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gsubst/internal/types"
)

// RequirementKind enumerates the requirement forms a signature can state.
type RequirementKind uint8

const (
	ReqConformance RequirementKind = iota + 1
	ReqSameType
	ReqSuperclass
)

func (k RequirementKind) String() string {
	switch k {
	case ReqConformance:
		return "conformance"
	case ReqSameType:
		return "same-type"
	case ReqSuperclass:
		return "superclass"
	default:
		return "unknown"
	}
}

// Requirement is one constraint of a generic signature.
type Requirement struct {
	Kind    RequirementKind
	Subject types.TypeID
	Proto   types.ProtocolID
	Other   types.TypeID
}

// Conforms builds a conformance requirement.
func Conforms(subject types.TypeID, proto types.ProtocolID) Requirement {
	return Requirement{Kind: ReqConformance, Subject: subject, Proto: proto}
}

// SameType builds a same-type requirement.
func SameType(subject, other types.TypeID) Requirement {
	return Requirement{Kind: ReqSameType, Subject: subject, Other: other}
}

// Superclass builds a superclass requirement.
func Superclass(subject, class types.TypeID) Requirement {
	return Requirement{Kind: ReqSuperclass, Subject: subject, Other: class}
}

// ErrInvalidSignature reports malformed signature input.
var ErrInvalidSignature = errors.New("invalid generic signature")

// Signature is an ordered list of generic parameters plus requirements.
// Signatures are immutable and compared by pointer identity.
type Signature struct {
	in     *types.Interner
	params []types.TypeID
	reqs   []Requirement

	canonicalOnce sync.Once
	canonical     *Signature

	envOnce sync.Once
	env     *Environment

	pathMu    sync.Mutex
	pathCache map[pathKey]pathResult
}

type pathKey struct {
	subject types.TypeID
	proto   types.ProtocolID
}

type pathResult struct {
	path Path
	ok   bool
}

// New validates and builds a signature. Parameters must be generic parameter
// types sorted by (depth, index); requirement subjects must be rooted in them.
func New(in *types.Interner, params []types.TypeID, reqs []Requirement) (*Signature, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil interner", ErrInvalidSignature)
	}
	declared := make(map[types.ParamKey]bool, len(params))
	var prev types.ParamKey
	for i, p := range params {
		key, ok := in.Key(p)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %d (%s) is not a generic parameter", ErrInvalidSignature, i, types.Label(in, p))
		}
		if i > 0 && !keyLess(prev, key) {
			return nil, fmt.Errorf("%w: parameter %s out of order", ErrInvalidSignature, types.Label(in, p))
		}
		declared[key] = true
		prev = key
	}
	for _, req := range reqs {
		root := in.RootParam(req.Subject)
		if root == types.NoTypeID {
			return nil, fmt.Errorf("%w: requirement subject %s is not a type parameter", ErrInvalidSignature, types.Label(in, req.Subject))
		}
		key, _ := in.Key(root)
		if !declared[key] {
			return nil, fmt.Errorf("%w: requirement subject %s mentions an undeclared parameter", ErrInvalidSignature, types.Label(in, req.Subject))
		}
		switch req.Kind {
		case ReqConformance:
			if _, ok := in.Protocol(req.Proto); !ok {
				return nil, fmt.Errorf("%w: unknown protocol %d", ErrInvalidSignature, req.Proto)
			}
		case ReqSameType, ReqSuperclass:
			if req.Other == types.NoTypeID {
				return nil, fmt.Errorf("%w: %s requirement without a right-hand side", ErrInvalidSignature, req.Kind)
			}
		default:
			return nil, fmt.Errorf("%w: unknown requirement kind %d", ErrInvalidSignature, req.Kind)
		}
	}
	return &Signature{
		in:     in,
		params: slices.Clone(params),
		reqs:   slices.Clone(reqs),
	}, nil
}

// MustNew is New for statically known inputs.
func MustNew(in *types.Interner, params []types.TypeID, reqs []Requirement) *Signature {
	sig, err := New(in, params, reqs)
	if err != nil {
		panic(err)
	}
	return sig
}

func keyLess(a, b types.ParamKey) bool {
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	return a.Index < b.Index
}

// Interner returns the type interner the signature is written against.
func (s *Signature) Interner() *types.Interner { return s.in }

// Params returns every generic parameter, outermost first.
func (s *Signature) Params() []types.TypeID {
	if s == nil {
		return nil
	}
	return s.params
}

// NumParams is len(Params()).
func (s *Signature) NumParams() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// InnermostParams returns the parameters at the deepest depth.
func (s *Signature) InnermostParams() []types.TypeID {
	if s == nil || len(s.params) == 0 {
		return nil
	}
	last, _ := s.in.Key(s.params[len(s.params)-1])
	start := len(s.params)
	for start > 0 {
		key, _ := s.in.Key(s.params[start-1])
		if key.Depth != last.Depth {
			break
		}
		start--
	}
	return s.params[start:]
}

// NextDepth returns the depth a nested generic context would use.
func (s *Signature) NextDepth() uint32 {
	if s == nil || len(s.params) == 0 {
		return 0
	}
	last, _ := s.in.Key(s.params[len(s.params)-1])
	return last.Depth + 1
}

// ParamIndex finds the position of the parameter with the given key, or -1.
func (s *Signature) ParamIndex(key types.ParamKey) int {
	if s == nil {
		return -1
	}
	for i, p := range s.params {
		if k, _ := s.in.Key(p); k == key {
			return i
		}
	}
	return -1
}

// Requirements returns every requirement in declaration order.
func (s *Signature) Requirements() []Requirement {
	if s == nil {
		return nil
	}
	return s.reqs
}

// ConformanceRequirements returns the conformance requirements in
// declaration order; stored conformances of a substitution map align with it.
func (s *Signature) ConformanceRequirements() []Requirement {
	if s == nil {
		return nil
	}
	out := make([]Requirement, 0, len(s.reqs))
	for _, r := range s.reqs {
		if r.Kind == ReqConformance {
			out = append(out, r)
		}
	}
	return out
}

// NumConformanceRequirements is len(ConformanceRequirements()).
func (s *Signature) NumConformanceRequirements() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.reqs {
		if r.Kind == ReqConformance {
			n++
		}
	}
	return n
}

// IsCanonical reports whether every type the signature mentions is canonical.
func (s *Signature) IsCanonical() bool {
	if s == nil {
		return true
	}
	return s.Canonical() == s
}

// Canonical returns the signature with every mentioned type canonicalized.
// A signature that is already canonical is its own canonical form.
func (s *Signature) Canonical() *Signature {
	if s == nil {
		return nil
	}
	s.canonicalOnce.Do(func() {
		changed := false
		reqs := make([]Requirement, len(s.reqs))
		for i, r := range s.reqs {
			c := r
			c.Subject = s.in.Canonical(r.Subject)
			if r.Other != types.NoTypeID {
				c.Other = s.in.Canonical(r.Other)
			}
			changed = changed || c != r
			reqs[i] = c
		}
		if !changed {
			s.canonical = s
			return
		}
		canon := &Signature{in: s.in, params: s.params, reqs: reqs}
		canon.canonical = canon
		canon.canonicalOnce.Do(func() {})
		s.canonical = canon
	})
	return s.canonical
}

// ForEachParam visits every parameter in order, reporting whether it is
// canonical. A parameter made equal to a concrete type or to an earlier
// parameter carries no independent information.
func (s *Signature) ForEachParam(fn func(param types.TypeID, canonical bool)) {
	if s == nil {
		return
	}
	for i, p := range s.params {
		fn(p, !s.isRedundantParam(i))
	}
}

func (s *Signature) isRedundantParam(i int) bool {
	p := s.params[i]
	for _, r := range s.reqs {
		if r.Kind != ReqSameType {
			continue
		}
		var other types.TypeID
		switch {
		case r.Subject == p:
			other = r.Other
		case r.Other == p:
			other = r.Subject
		default:
			continue
		}
		if !s.in.IsTypeParameter(other) {
			return true
		}
		if j := slices.Index(s.params, other); j >= 0 && j < i {
			return true
		}
	}
	return false
}

// ConcreteType returns the concrete type a parameter is made equal to.
func (s *Signature) ConcreteType(t types.TypeID) (types.TypeID, bool) {
	if s == nil {
		return types.NoTypeID, false
	}
	t = s.in.Canonical(t)
	for _, r := range s.reqs {
		if r.Kind != ReqSameType {
			continue
		}
		switch {
		case s.in.Canonical(r.Subject) == t && !s.in.IsTypeParameter(r.Other):
			return r.Other, true
		case s.in.Canonical(r.Other) == t && !s.in.IsTypeParameter(r.Subject):
			return r.Subject, true
		}
	}
	return types.NoTypeID, false
}

// AreAllParamsConcrete reports whether every parameter is fixed to a concrete type.
func (s *Signature) AreAllParamsConcrete() bool {
	if s == nil {
		return true
	}
	for _, p := range s.params {
		if _, ok := s.ConcreteType(p); !ok {
			return false
		}
	}
	return true
}

// SuperclassBound returns the superclass bound stated for t.
func (s *Signature) SuperclassBound(t types.TypeID) types.TypeID {
	if s == nil {
		return types.NoTypeID
	}
	t = s.in.Canonical(t)
	for _, r := range s.reqs {
		if r.Kind == ReqSuperclass && s.in.Canonical(r.Subject) == t {
			return r.Other
		}
	}
	return types.NoTypeID
}

// ConformsTo lists every registered protocol t is required to conform to.
func (s *Signature) ConformsTo(t types.TypeID) []types.ProtocolID {
	if s == nil {
		return nil
	}
	var out []types.ProtocolID
	for _, p := range s.in.Protocols() {
		if s.RequiresProtocol(t, p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Signature) String() string {
	if s == nil {
		return "<>"
	}
	var b strings.Builder
	b.WriteByte('<')
	for i, p := range s.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(types.Label(s.in, p))
	}
	if len(s.reqs) > 0 {
		b.WriteString(" where ")
		for i, r := range s.reqs {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.Label(s.in))
		}
	}
	b.WriteByte('>')
	return b.String()
}

// Label renders the requirement for diagnostics.
func (r Requirement) Label(in *types.Interner) string {
	switch r.Kind {
	case ReqConformance:
		return types.Label(in, r.Subject) + ": " + in.ProtocolName(r.Proto)
	case ReqSameType:
		return types.Label(in, r.Subject) + " == " + types.Label(in, r.Other)
	case ReqSuperclass:
		return types.Label(in, r.Subject) + ": " + types.Label(in, r.Other)
	default:
		return "?"
	}
}
