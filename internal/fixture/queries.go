package fixture

import (
	"strconv"

	"golang.org/x/text/unicode/norm"

	"gsubst/internal/diag"
	"gsubst/internal/types"
)

// QueryKind is the question a query asks of its map.
type QueryKind string

const (
	// QuerySubst applies the map to Type.
	QuerySubst QueryKind = "subst"
	// QueryReplacement looks up the replacement of the type parameter Type.
	QueryReplacement QueryKind = "replacement"
	// QueryLookup resolves Type: Protocol.
	QueryLookup QueryKind = "lookup"
	// QueryIdentity reports whether the map is an identity.
	QueryIdentity QueryKind = "identity"
	// QueryCanonical reports whether the map is canonical.
	QueryCanonical QueryKind = "canonical"
	// QueryVerify lists verification findings, "ok" when there are none.
	QueryVerify QueryKind = "verify"
	// QueryString renders the whole map.
	QueryString QueryKind = "string"
)

// Query is one resolved question. Type and Proto are set for the kinds that
// read them.
type Query struct {
	Name      string
	Loc       diag.Location
	Kind      QueryKind
	Map       *MapEntry
	Type      types.TypeID
	Proto     types.ProtocolID
	Expect    string
	HasExpect bool
}

func (w *World) defineQuery(i int, spec *QuerySpec) {
	name := norm.NFC.String(spec.Name)
	if name == "" {
		name = "#" + strconv.Itoa(i)
	}
	entry := "query[" + name + "]"
	e := w.Map(spec.Map)
	if e == nil {
		w.errorf(diag.FixUnknownName, entry, "unknown map %q", spec.Map)
		return
	}
	q := &Query{Name: name, Loc: w.loc(entry), Kind: QueryKind(spec.Kind), Map: e}
	if spec.Expect != nil {
		q.Expect, q.HasExpect = *spec.Expect, true
	}
	switch q.Kind {
	case QuerySubst, QueryReplacement, QueryLookup:
		if spec.Type == "" {
			w.errorf(diag.FixBadQuery, entry, "%s query needs a type", q.Kind)
			return
		}
		t, err := w.parseType(w.scopeFor(e.Map.Signature()), spec.Type)
		if err != nil {
			w.errorf(diag.FixBadType, entry, "%v", err)
			return
		}
		q.Type = t
		if q.Kind == QueryReplacement && !w.Types.IsTypeParameter(t) && !w.Types.IsArchetype(t) {
			w.errorf(diag.FixBadQuery, entry, "replacement query needs a type parameter, got %s", types.Label(w.Types, t))
			return
		}
		if q.Kind == QueryLookup {
			proto, ok := w.Protocol(spec.Protocol)
			if !ok {
				w.errorf(diag.FixUnknownName, entry, "unknown protocol %q", spec.Protocol)
				return
			}
			q.Proto = proto
		}
	case QueryIdentity, QueryCanonical, QueryVerify, QueryString:
	default:
		w.errorf(diag.FixBadQuery, entry, "unknown query kind %q", spec.Kind)
		return
	}
	w.Queries = append(w.Queries, q)
}
