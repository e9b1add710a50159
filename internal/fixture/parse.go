package fixture

import (
	"fmt"
	"slices"

	"golang.org/x/text/unicode/norm"

	"gsubst/internal/generics"
	"gsubst/internal/types"
)

// ParseError locates a problem inside one type or signature expression.
type ParseError struct {
	Expr string
	Pos  uint32
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%q at %d: %s", e.Expr, e.Pos, e.Msg)
}

// scope resolves the names an expression may mention.
type scope struct {
	w     *World
	names map[string]types.TypeID
	// sig is the finished signature the names belong to.
	sig *generics.Signature
	// params and reqs accumulate while a signature is being parsed.
	params []types.TypeID
	reqs   []generics.Requirement
	// proto is set inside a protocol declaration, where Self is in scope.
	proto     types.ProtocolID
	protoReqs []types.AssocRequirement
}

func (w *World) emptyScope() *scope {
	return &scope{w: w, names: map[string]types.TypeID{}}
}

func (w *World) protocolScope(proto types.ProtocolID) *scope {
	return &scope{
		w:     w,
		names: map[string]types.TypeID{"Self": w.Types.SelfParam()},
		sig:   w.Ctx.ProtocolSignature(proto),
		proto: proto,
	}
}

func (sc *scope) child() *scope {
	out := &scope{w: sc.w, names: make(map[string]types.TypeID, len(sc.names)+2), sig: sc.sig}
	for k, v := range sc.names {
		out.names[k] = v
	}
	if sc.sig != nil {
		out.params = slices.Clone(sc.sig.Params())
		out.reqs = slices.Clone(sc.sig.Requirements())
	}
	return out
}

// conformsTo lists the protocols base is known to conform to, used to
// resolve `base.Name` members.
func (sc *scope) conformsTo(base types.TypeID) []types.ProtocolID {
	in := sc.w.Types
	if sc.proto != types.NoProtocolID {
		var direct []types.ProtocolID
		if base == in.SelfParam() {
			direct = append(direct, sc.proto)
		}
		for _, r := range sc.protoReqs {
			if r.Subject == base {
				direct = append(direct, r.Proto)
			}
		}
		for _, p := range inherited(in, []types.ProtocolID{sc.proto}) {
			info, _ := in.Protocol(p)
			for _, r := range info.Requirements {
				if r.Subject == base {
					direct = append(direct, r.Proto)
				}
			}
		}
		return inherited(in, direct)
	}
	sig := sc.sig
	if len(sc.params) > 0 && (sig == nil || len(sc.params) != sig.NumParams() || len(sc.reqs) != len(sig.Requirements())) {
		tmp, err := generics.New(in, sc.params, sc.reqs)
		if err != nil {
			return nil
		}
		sig = tmp
	}
	return sig.ConformsTo(base)
}

// inherited closes protos over Self: P requirements.
func inherited(in *types.Interner, protos []types.ProtocolID) []types.ProtocolID {
	self := in.SelfParam()
	var out []types.ProtocolID
	queue := slices.Clone(protos)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
		info, ok := in.Protocol(p)
		if !ok {
			continue
		}
		for _, r := range info.Requirements {
			if r.Subject == self {
				queue = append(queue, r.Proto)
			}
		}
	}
	return out
}

// parser reads one expression. The first error sticks; later productions
// return NoTypeID without reporting.
type parser struct {
	src string
	s   *scanner
	sc  *scope
	err *ParseError
}

func newParser(sc *scope, text string) *parser {
	src := norm.NFC.String(text)
	return &parser{src: src, s: newScanner(src), sc: sc}
}

func (p *parser) fail(pos uint32, format string, args ...any) {
	if p.err == nil {
		p.err = &ParseError{Expr: p.src, Pos: pos, Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *parser) failed() bool { return p.err != nil }

func (p *parser) expect(kind tokKind) token {
	tok := p.s.next()
	if tok.Kind != kind {
		p.fail(tok.Pos, "expected %s, found %s", kind, describe(tok))
	}
	return tok
}

func (p *parser) finish() error {
	if p.err == nil {
		if tok := p.s.peek(); tok.Kind != tokEOF {
			p.fail(tok.Pos, "unexpected %s", describe(tok))
		}
	}
	if p.err != nil {
		return p.err
	}
	return nil
}

func describe(tok token) string {
	if tok.Kind == tokIdent || tok.Kind == tokInvalid {
		return fmt.Sprintf("%q", tok.Text)
	}
	return tok.Kind.String()
}

func (p *parser) typ() types.TypeID {
	if p.failed() {
		return types.NoTypeID
	}
	in := p.sc.w.Types
	tok := p.s.peek()
	switch tok.Kind {
	case tokIdent:
		switch tok.Text {
		case "any":
			p.s.next()
			proto := p.protocol(p.expect(tokIdent))
			if p.failed() {
				return types.NoTypeID
			}
			return in.Existential(proto)
		case "some":
			p.s.next()
			name := p.expect(tokIdent)
			if p.failed() {
				return types.NoTypeID
			}
			id, ok := p.sc.w.opaques[name.Text]
			if !ok {
				p.fail(name.Pos, "unknown opaque type %q", name.Text)
				return types.NoTypeID
			}
			return in.OpaqueArchetype(id)
		case "repeat":
			p.s.next()
			pattern := p.typ()
			if p.failed() {
				return types.NoTypeID
			}
			count := packRoot(in, pattern)
			if count == types.NoTypeID {
				p.fail(tok.Pos, "repeat pattern %s mentions no parameter pack", types.Label(in, pattern))
				return types.NoTypeID
			}
			return in.Expansion(pattern, count)
		case "each":
			p.s.next()
			param := p.param()
			if !p.failed() && !in.IsParameterPack(param) {
				p.fail(tok.Pos, "%s is not a parameter pack", types.Label(in, param))
			}
			return p.members(param)
		}
		return p.members(p.named())
	case tokAt:
		p.s.next()
		iface := p.members(p.param())
		if p.failed() {
			return types.NoTypeID
		}
		if p.sc.sig == nil {
			p.fail(tok.Pos, "archetype outside a generic context")
			return types.NoTypeID
		}
		return p.sc.sig.Environment().ArchetypeFor(iface)
	case tokBang:
		p.s.next()
		return in.Builtins().Error
	case tokLParen:
		return p.tupleOrFn()
	default:
		p.fail(tok.Pos, "expected a type, found %s", describe(tok))
		return types.NoTypeID
	}
}

func (p *parser) param() types.TypeID {
	name := p.expect(tokIdent)
	if p.failed() {
		return types.NoTypeID
	}
	id, ok := p.sc.names[name.Text]
	if !ok {
		p.fail(name.Pos, "unknown generic parameter %q", name.Text)
		return types.NoTypeID
	}
	return id
}

func (p *parser) named() types.TypeID {
	in := p.sc.w.Types
	name := p.expect(tokIdent)
	if p.failed() {
		return types.NoTypeID
	}
	if name.Text == "Pack" && p.s.peek().Kind == tokLBrace {
		p.s.next()
		elems := p.typeList(tokRBrace)
		p.expect(tokRBrace)
		if p.failed() {
			return types.NoTypeID
		}
		return in.Pack(elems)
	}
	if id, ok := p.sc.names[name.Text]; ok {
		return id
	}
	if id, ok := p.sc.w.aliases[name.Text]; ok {
		return id
	}
	decl, ok := p.sc.w.nominals[name.Text]
	if !ok {
		p.fail(name.Pos, "unknown type %q", name.Text)
		return types.NoTypeID
	}
	var args []types.TypeID
	if p.s.peek().Kind == tokLAngle {
		p.s.next()
		args = p.typeList(tokRAngle)
		p.expect(tokRAngle)
		if p.failed() {
			return types.NoTypeID
		}
	}
	if d := p.sc.w.decls[name.Text]; d != nil && d.Sig != nil && d.Sig.NumParams() != len(args) {
		p.fail(name.Pos, "%s takes %d generic arguments, got %d", name.Text, d.Sig.NumParams(), len(args))
		return types.NoTypeID
	}
	return in.Nominal(decl, args)
}

func (p *parser) members(base types.TypeID) types.TypeID {
	for !p.failed() && p.s.peek().Kind == tokDot {
		p.s.next()
		name := p.expect(tokIdent)
		if p.failed() {
			return types.NoTypeID
		}
		base = p.member(base, name)
	}
	return base
}

func (p *parser) member(base types.TypeID, name token) types.TypeID {
	in := p.sc.w.Types
	if !in.IsTypeParameter(base) {
		p.fail(name.Pos, "member %q of non-parameter type %s", name.Text, types.Label(in, base))
		return types.NoTypeID
	}
	for _, proto := range p.sc.conformsTo(base) {
		if m, ok := in.MemberNamed(base, proto, name.Text); ok {
			return m
		}
	}
	p.fail(name.Pos, "%s has no associated type %q", types.Label(in, base), name.Text)
	return types.NoTypeID
}

func (p *parser) tupleOrFn() types.TypeID {
	in := p.sc.w.Types
	p.expect(tokLParen)
	elems := p.typeList(tokRParen)
	p.expect(tokRParen)
	if p.failed() {
		return types.NoTypeID
	}
	if p.s.peek().Kind == tokArrow {
		p.s.next()
		result := p.typ()
		if p.failed() {
			return types.NoTypeID
		}
		return in.Fn(elems, result)
	}
	if len(elems) == 1 && in.Kind(elems[0]) != types.KindPackExpansion {
		return elems[0]
	}
	return in.Tuple(elems)
}

func (p *parser) typeList(closer tokKind) []types.TypeID {
	var out []types.TypeID
	if p.s.peek().Kind == closer {
		return out
	}
	for !p.failed() {
		out = append(out, p.typ())
		if p.s.peek().Kind != tokComma {
			break
		}
		p.s.next()
	}
	return out
}

func (p *parser) protocol(name token) types.ProtocolID {
	if p.failed() {
		return types.NoProtocolID
	}
	proto, ok := p.sc.w.protocols[name.Text]
	if !ok {
		p.fail(name.Pos, "unknown protocol %q", name.Text)
	}
	return proto
}

// packRoot returns the first parameter pack or pack archetype in t outside
// nested expansions.
func packRoot(in *types.Interner, t types.TypeID) types.TypeID {
	tt, ok := in.Lookup(t)
	if !ok {
		return types.NoTypeID
	}
	switch tt.Kind {
	case types.KindGenericParam:
		if tt.Pack {
			return t
		}
	case types.KindArchetype:
		if types.ArchetypeKind(tt.Index) == types.ArchetypePack {
			return t
		}
	case types.KindDependentMember, types.KindAlias:
		return packRoot(in, tt.Elem)
	case types.KindNominal, types.KindTuple, types.KindPack:
		for _, e := range in.List(tt.Payload) {
			if r := packRoot(in, e); r != types.NoTypeID {
				return r
			}
		}
	case types.KindFn:
		for _, e := range in.List(tt.Payload) {
			if r := packRoot(in, e); r != types.NoTypeID {
				return r
			}
		}
		return packRoot(in, tt.Elem)
	}
	return types.NoTypeID
}

// ParseType parses a type expression in the scope of sig. A nil sig allows
// only concrete types.
func (w *World) ParseType(sig *generics.Signature, text string) (types.TypeID, error) {
	return w.parseType(w.scopeFor(sig), text)
}

func (w *World) parseType(sc *scope, text string) (types.TypeID, error) {
	p := newParser(sc, text)
	t := p.typ()
	if err := p.finish(); err != nil {
		return types.NoTypeID, err
	}
	return t, nil
}

// scopeFor returns the scope a signature was parsed in, so its names stay
// usable in later expressions.
func (w *World) scopeFor(sig *generics.Signature) *scope {
	if sig == nil {
		return w.emptyScope()
	}
	if sc, ok := w.scopes[sig]; ok {
		return sc
	}
	sc := w.emptyScope()
	sc.sig = sig
	return sc
}

// parseSignature reads one or more `<...>` groups, one per depth, nested
// inside parent. An empty text yields parent unchanged.
func (w *World) parseSignature(parent *scope, text string) (*generics.Signature, *scope, error) {
	if parent == nil {
		parent = w.emptyScope()
	}
	p := newParser(parent, text)
	if p.s.peek().Kind == tokEOF {
		return parent.sig, parent, nil
	}
	sc := parent.child()
	p.sc = sc
	depth := parent.sig.NextDepth()
	for !p.failed() && p.s.peek().Kind == tokLAngle {
		p.s.next()
		p.paramGroup(depth)
		if p.s.peek().Kind == tokIdent && p.s.peek().Text == "where" {
			p.s.next()
			for !p.failed() {
				p.requirement()
				if p.s.peek().Kind != tokComma {
					break
				}
				p.s.next()
			}
		}
		p.expect(tokRAngle)
		depth++
	}
	if err := p.finish(); err != nil {
		return nil, nil, err
	}
	sig, err := generics.New(w.Types, sc.params, sc.reqs)
	if err != nil {
		return nil, nil, &ParseError{Expr: p.src, Msg: err.Error()}
	}
	sc.sig = sig
	sc.params, sc.reqs = nil, nil
	w.scopes[sig] = sc
	return sig, sc, nil
}

func (p *parser) paramGroup(depth uint32) {
	in := p.sc.w.Types
	var index uint32
	if p.s.peek().Kind == tokRAngle {
		return
	}
	for !p.failed() {
		pack := false
		if tok := p.s.peek(); tok.Kind == tokIdent && tok.Text == "each" {
			p.s.next()
			pack = true
		}
		name := p.expect(tokIdent)
		if p.failed() {
			return
		}
		if name.Text == "where" {
			p.fail(name.Pos, "expected a parameter name")
			return
		}
		if _, dup := p.sc.names[name.Text]; dup {
			p.fail(name.Pos, "generic parameter %q declared twice", name.Text)
			return
		}
		param := in.Param(depth, index, pack)
		index++
		p.sc.names[name.Text] = param
		p.sc.params = append(p.sc.params, param)
		if p.s.peek().Kind != tokComma {
			return
		}
		p.s.next()
	}
}

// requirement reads `X: P`, `X: Class` or `X == Y`.
func (p *parser) requirement() {
	subject := p.typ()
	if p.failed() {
		return
	}
	tok := p.s.next()
	switch tok.Kind {
	case tokEqEq:
		other := p.typ()
		if !p.failed() {
			p.sc.reqs = append(p.sc.reqs, generics.SameType(subject, other))
		}
	case tokColon:
		if next := p.s.peek(); next.Kind == tokIdent {
			if proto, ok := p.sc.w.protocols[next.Text]; ok {
				p.s.next()
				p.sc.reqs = append(p.sc.reqs, generics.Conforms(subject, proto))
				return
			}
		}
		class := p.typ()
		if !p.failed() {
			p.sc.reqs = append(p.sc.reqs, generics.Superclass(subject, class))
		}
	default:
		p.fail(tok.Pos, "expected ':' or '==', found %s", describe(tok))
	}
}

// parseAssocRequirement reads `Self...: P` inside sc's protocol.
func (w *World) parseAssocRequirement(sc *scope, text string) (types.AssocRequirement, error) {
	p := newParser(sc, text)
	subject := p.typ()
	p.expect(tokColon)
	proto := p.protocol(p.expect(tokIdent))
	if err := p.finish(); err != nil {
		return types.AssocRequirement{}, err
	}
	return types.AssocRequirement{Subject: subject, Proto: proto}, nil
}
