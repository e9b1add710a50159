package fixture

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"

	"gsubst/internal/decl"
	"gsubst/internal/diag"
	"gsubst/internal/generics"
	"gsubst/internal/subst"
	"gsubst/internal/types"
)

// World is a fixture turned into live objects: an interner, a substitution
// session with its conformance table, declarations, named maps and the
// queries to run against them.
type World struct {
	Path   string
	Module string
	Types  *types.Interner
	Ctx    *subst.Context

	// Maps and Queries keep fixture order.
	Maps    []*MapEntry
	Queries []*Query

	r diag.Reporter

	names     map[string]string
	protocols map[string]types.ProtocolID
	nominals  map[string]types.NominalID
	decls     map[string]*decl.Nominal
	aliases   map[string]types.TypeID
	opaques   map[string]types.OpaqueID
	members   map[string]*decl.Member
	maps      map[string]*MapEntry
	scopes    map[*generics.Signature]*scope
}

// MapEntry is one named map. Fault is set instead of Map when construction
// hit a structural fault.
type MapEntry struct {
	Name        string
	Kind        MapKind
	Loc         diag.Location
	Map         subst.Map
	Fault       *subst.FaultError
	ExpectFault string
}

// Protocol returns the protocol declared under name.
func (w *World) Protocol(name string) (types.ProtocolID, bool) {
	p, ok := w.protocols[norm.NFC.String(name)]
	return p, ok
}

// Decl returns the nominal or protocol declaration declared under name.
func (w *World) Decl(name string) *decl.Nominal { return w.decls[norm.NFC.String(name)] }

// Member returns the member declared under "Parent.name".
func (w *World) Member(name string) *decl.Member { return w.members[norm.NFC.String(name)] }

// Map returns the named map entry.
func (w *World) Map(name string) *MapEntry { return w.maps[norm.NFC.String(name)] }

// Build creates the world described by f. Problems are reported to r and
// the offending entry is skipped; the returned world is always usable.
func Build(f *File, path string, opts subst.Options, r diag.Reporter) *World {
	in := types.NewInterner()
	w := &World{
		Path:      path,
		Module:    norm.NFC.String(f.Module),
		Types:     in,
		Ctx:       subst.NewContext(in, opts),
		r:         r,
		names:     make(map[string]string, 16),
		protocols: make(map[string]types.ProtocolID, len(f.Protocols)),
		nominals:  make(map[string]types.NominalID, len(f.Nominals)),
		decls:     make(map[string]*decl.Nominal, len(f.Nominals)+len(f.Protocols)),
		aliases:   make(map[string]types.TypeID, len(f.Aliases)),
		opaques:   make(map[string]types.OpaqueID, len(f.Opaques)),
		members:   make(map[string]*decl.Member, len(f.Members)),
		maps:      make(map[string]*MapEntry, len(f.Maps)),
		scopes:    make(map[*generics.Signature]*scope, 16),
	}
	w.declareProtocols(f.Protocols)
	w.declareNominals(f.Nominals)
	w.defineProtocols(f.Protocols)
	w.defineNominals(f.Nominals)
	w.defineAliases(f.Aliases)
	w.defineOpaques(f.Opaques)
	w.defineConformances(f.Conformances)
	w.defineMembers(f.Members)
	for i := range f.Maps {
		w.defineMap(&f.Maps[i])
	}
	for i := range f.Queries {
		w.defineQuery(i, &f.Queries[i])
	}
	return w
}

func (w *World) loc(entry string) diag.Location {
	return diag.Location{File: w.Path, Entry: entry}
}

func (w *World) errorf(code diag.Code, entry, format string, args ...any) {
	diag.ReportError(w.r, code, w.loc(entry), fmt.Sprintf(format, args...)).Emit()
}

// claim reserves a type-level name; protocols, nominals and aliases share
// one namespace.
func (w *World) claim(name, what, entry string) bool {
	if name == "" {
		w.errorf(diag.FixUnknownName, entry, "%s without a name", what)
		return false
	}
	if prev, dup := w.names[name]; dup {
		w.errorf(diag.FixDuplicateName, entry, "%s %q already declared as %s", what, name, prev)
		return false
	}
	w.names[name] = what
	return true
}

func (w *World) declareProtocols(specs []ProtocolSpec) {
	in := w.Types
	for _, spec := range specs {
		name := norm.NFC.String(spec.Name)
		entry := "protocol[" + name + "]"
		if !w.claim(name, "protocol", entry) {
			continue
		}
		assoc := make([]string, len(spec.Assoc))
		for i, a := range spec.Assoc {
			assoc[i] = norm.NFC.String(a)
		}
		p := in.RegisterProtocol(name, assoc...)
		switch spec.Invertible {
		case "":
		case "copyable":
			in.MarkInvertible(p, types.InvertibleCopyable)
		case "escapable":
			in.MarkInvertible(p, types.InvertibleEscapable)
		default:
			w.errorf(diag.FixUnknownName, entry, "unknown invertible kind %q", spec.Invertible)
		}
		if spec.SelfConforming {
			in.MarkSelfConforming(p)
		}
		w.protocols[name] = p
	}
}

func (w *World) declareNominals(specs []NominalSpec) {
	for _, spec := range specs {
		name := norm.NFC.String(spec.Name)
		entry := "nominal[" + name + "]"
		var class bool
		switch spec.Kind {
		case "", "struct":
		case "class":
			class = true
		default:
			w.errorf(diag.FixUnknownName, entry, "unknown nominal kind %q", spec.Kind)
			continue
		}
		if !w.claim(name, "nominal", entry) {
			continue
		}
		w.nominals[name] = w.Types.RegisterNominal(name, class)
	}
}

// defineProtocols sets requirement signatures in two rounds: inherited
// protocols first so that associated requirements can resolve members
// declared by parents.
func (w *World) defineProtocols(specs []ProtocolSpec) {
	in := w.Types
	self := in.SelfParam()
	reqs := make(map[types.ProtocolID][]types.AssocRequirement, len(specs))
	for _, spec := range specs {
		name := norm.NFC.String(spec.Name)
		p, ok := w.protocols[name]
		if !ok {
			continue
		}
		for _, parent := range spec.Inherits {
			pp, ok := w.protocols[norm.NFC.String(parent)]
			if !ok {
				w.errorf(diag.FixUnknownName, "protocol["+name+"]", "unknown inherited protocol %q", parent)
				continue
			}
			reqs[p] = append(reqs[p], types.AssocRequirement{Subject: self, Proto: pp})
		}
		in.SetProtocolRequirements(p, reqs[p])
		w.decls[name] = &decl.Nominal{Name: name, Kind: decl.KindProtocol, Protocol: p, Sig: w.Ctx.ProtocolSignature(p)}
	}
	for _, spec := range specs {
		name := norm.NFC.String(spec.Name)
		p, ok := w.protocols[name]
		if !ok || len(spec.Requires) == 0 {
			continue
		}
		sc := w.protocolScope(p)
		sc.protoReqs = slices.Clone(reqs[p])
		for _, text := range spec.Requires {
			req, err := w.parseAssocRequirement(sc, text)
			if err != nil {
				w.errorf(diag.FixBadRequirement, "protocol["+name+"]", "%v", err)
				continue
			}
			sc.protoReqs = append(sc.protoReqs, req)
		}
		in.SetProtocolRequirements(p, sc.protoReqs)
	}
	for name, p := range w.protocols {
		if d := w.decls[name]; d != nil {
			w.scopes[d.Sig] = w.protocolScope(p)
		}
	}
}

func (w *World) defineNominals(specs []NominalSpec) {
	type pending struct {
		d          *decl.Nominal
		superclass string
	}
	var order []pending
	for _, spec := range specs {
		name := norm.NFC.String(spec.Name)
		id, ok := w.nominals[name]
		if !ok {
			continue
		}
		d := &decl.Nominal{Name: name, Kind: decl.KindStruct, ID: id}
		if info, _ := w.Types.NominalInfo(id); info.Class {
			d.Kind = decl.KindClass
		}
		sig, _, err := w.parseSignature(nil, spec.Generic)
		if err != nil {
			w.errorf(diag.FixBadSignature, "nominal["+name+"]", "%v", err)
			continue
		}
		d.Sig = sig
		w.decls[name] = d
		order = append(order, pending{d: d, superclass: spec.Superclass})
	}
	// Superclasses may name classes declared later in the file.
	for _, item := range order {
		d := item.d
		if item.superclass == "" {
			continue
		}
		entry := "nominal[" + d.Name + "]"
		if !d.IsClass() {
			w.errorf(diag.FixBadType, entry, "only classes have superclasses")
			continue
		}
		super, err := w.parseType(w.scopeFor(d.Sig), item.superclass)
		if err != nil {
			w.errorf(diag.FixBadType, entry, "%v", err)
			continue
		}
		var target *decl.Nominal
		if superDecl, ok := w.Types.NominalDecl(super); ok {
			target = w.declByID(superDecl)
		}
		if target == nil || !target.IsClass() {
			w.errorf(diag.FixBadType, entry, "superclass %s is not a class", types.Label(w.Types, super))
			continue
		}
		d.Superclass = super
		d.SuperclassDecl = target
	}
}

func (w *World) declByID(id types.NominalID) *decl.Nominal {
	for _, d := range w.decls {
		if d.Kind != decl.KindProtocol && d.ID == id {
			return d
		}
	}
	return nil
}

// defineAliases resolves aliases in name order; an alias may refer to any
// alias sorting before it.
func (w *World) defineAliases(aliases map[string]string) {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, raw := range names {
		name := norm.NFC.String(raw)
		entry := "aliases." + name
		if !w.claim(name, "alias", entry) {
			continue
		}
		under, err := w.parseType(w.emptyScope(), aliases[raw])
		if err != nil {
			w.errorf(diag.FixBadType, entry, "%v", err)
			continue
		}
		w.aliases[name] = w.Types.Alias(name, under)
	}
}

func (w *World) defineOpaques(specs []OpaqueSpec) {
	for _, spec := range specs {
		name := norm.NFC.String(spec.Name)
		entry := "opaque[" + name + "]"
		if _, dup := w.opaques[name]; dup || name == "" {
			w.errorf(diag.FixDuplicateName, entry, "opaque type %q declared twice or unnamed", name)
			continue
		}
		info := types.OpaqueInfo{Name: name, Module: norm.NFC.String(spec.Module), Resilient: spec.Resilient}
		if info.Module == "" {
			info.Module = w.Module
		}
		if spec.Underlying != "" {
			under, err := w.parseType(w.emptyScope(), spec.Underlying)
			if err != nil {
				w.errorf(diag.FixBadType, entry, "%v", err)
				continue
			}
			info.Underlying = under
		}
		for _, c := range spec.Conforms {
			p, ok := w.protocols[norm.NFC.String(c)]
			if !ok {
				w.errorf(diag.FixUnknownName, entry, "unknown protocol %q", c)
				continue
			}
			info.ConformsTo = append(info.ConformsTo, p)
		}
		w.opaques[name] = w.Types.RegisterOpaque(info)
	}
}

func (w *World) defineConformances(specs []ConformanceSpec) {
	in := w.Types
	for i, spec := range specs {
		entry := "conformance[" + strconv.Itoa(i) + "]"
		proto, ok := w.protocols[norm.NFC.String(spec.Protocol)]
		if !ok {
			w.errorf(diag.FixUnknownName, entry, "unknown protocol %q", spec.Protocol)
			continue
		}
		sig, sc, err := w.parseSignature(nil, spec.Generic)
		if err != nil {
			w.errorf(diag.FixBadSignature, entry, "%v", err)
			continue
		}
		typ, err := w.parseType(sc, spec.Type)
		if err != nil {
			w.errorf(diag.FixBadType, entry, "%v", err)
			continue
		}
		if _, ok := in.NominalDecl(typ); !ok {
			w.errorf(diag.FixBadConformance, entry, "conforming type %s is not nominal", types.Label(in, typ))
			continue
		}
		n := w.Ctx.NewNormal(typ, proto, sig)
		info, _ := in.Protocol(proto)
		assocs := make([]string, 0, len(spec.Witnesses))
		for a := range spec.Witnesses {
			assocs = append(assocs, a)
		}
		slices.Sort(assocs)
		seen := make(map[string]bool, len(assocs))
		for _, a := range assocs {
			name := norm.NFC.String(a)
			if seen[name] {
				w.errorf(diag.FixDuplicateWitness, entry, "witness for %s given twice", name)
				continue
			}
			seen[name] = true
			idx := slices.Index(info.AssocTypes, name)
			if idx < 0 {
				w.errorf(diag.FixUnknownName, entry, "%s has no associated type %q", info.Name, name)
				continue
			}
			witness, err := w.parseType(sc, spec.Witnesses[a])
			if err != nil {
				w.errorf(diag.FixBadType, entry, "%v", err)
				continue
			}
			assoc, err := safecast.Conv[uint32](idx)
			if err != nil {
				panic(fmt.Errorf("associated type index overflow: %w", err))
			}
			n.SetTypeWitness(assoc, witness)
		}
		if err := w.Ctx.Table().Register(n); err != nil {
			w.errorf(diag.FixBadConformance, entry, "%v", err)
		}
	}
}

func (w *World) defineMembers(specs []MemberSpec) {
	for _, spec := range specs {
		parentName := norm.NFC.String(spec.Parent)
		key := parentName + "." + norm.NFC.String(spec.Name)
		entry := "member[" + key + "]"
		parent := w.decls[parentName]
		if parent == nil {
			w.errorf(diag.FixUnknownName, entry, "unknown parent %q", spec.Parent)
			continue
		}
		if _, dup := w.members[key]; dup {
			w.errorf(diag.FixDuplicateName, entry, "member declared twice")
			continue
		}
		m := &decl.Member{Name: norm.NFC.String(spec.Name), Parent: parent, Sig: parent.Sig}
		if spec.Generic != "" {
			sig, _, err := w.parseSignature(w.scopeFor(parent.Sig), spec.Generic)
			if err != nil {
				w.errorf(diag.FixBadSignature, entry, "%v", err)
				continue
			}
			m.Sig = sig
			m.Params = slices.Clone(sig.Params()[parent.Sig.NumParams():])
		}
		w.members[key] = m
	}
}

// guard converts a fault panic from a panicking builder into an error.
func guard(fn func() subst.Map) (m subst.Map, err error) {
	defer func() {
		if r := recover(); r != nil {
			var fault *subst.FaultError
			if e, ok := r.(error); ok && errors.As(e, &fault) {
				err = fault
				return
			}
			panic(r)
		}
	}()
	return fn(), nil
}
