package fixture

// File is the decoded form of a fixture. TOML fixtures use arrays of tables
// ([[protocol]], [[map]], ...); YAML fixtures use the plural keys.
type File struct {
	Module       string            `toml:"module,omitempty" yaml:"module,omitempty"`
	Protocols    []ProtocolSpec    `toml:"protocol,omitempty" yaml:"protocols,omitempty"`
	Nominals     []NominalSpec     `toml:"nominal,omitempty" yaml:"nominals,omitempty"`
	Aliases      map[string]string `toml:"aliases,omitempty" yaml:"aliases,omitempty"`
	Opaques      []OpaqueSpec      `toml:"opaque,omitempty" yaml:"opaques,omitempty"`
	Conformances []ConformanceSpec `toml:"conformance,omitempty" yaml:"conformances,omitempty"`
	Members      []MemberSpec      `toml:"member,omitempty" yaml:"members,omitempty"`
	Maps         []MapSpec         `toml:"map,omitempty" yaml:"maps,omitempty"`
	Queries      []QuerySpec       `toml:"query,omitempty" yaml:"queries,omitempty"`
}

// ProtocolSpec declares a protocol. Requires entries are written against
// Self, e.g. "Self.Iterator: IteratorProtocol".
type ProtocolSpec struct {
	Name           string   `toml:"name" yaml:"name"`
	Assoc          []string `toml:"assoc,omitempty" yaml:"assoc,omitempty"`
	Inherits       []string `toml:"inherits,omitempty" yaml:"inherits,omitempty"`
	Requires       []string `toml:"requires,omitempty" yaml:"requires,omitempty"`
	Invertible     string   `toml:"invertible,omitempty" yaml:"invertible,omitempty"`
	SelfConforming bool     `toml:"self_conforming,omitempty" yaml:"self_conforming,omitempty"`
}

// NominalSpec declares a struct or class.
type NominalSpec struct {
	Name       string `toml:"name" yaml:"name"`
	Kind       string `toml:"kind,omitempty" yaml:"kind,omitempty"`
	Generic    string `toml:"generic,omitempty" yaml:"generic,omitempty"`
	Superclass string `toml:"superclass,omitempty" yaml:"superclass,omitempty"`
}

// OpaqueSpec declares an opaque result type.
type OpaqueSpec struct {
	Name       string   `toml:"name" yaml:"name"`
	Module     string   `toml:"module,omitempty" yaml:"module,omitempty"`
	Underlying string   `toml:"underlying,omitempty" yaml:"underlying,omitempty"`
	Resilient  bool     `toml:"resilient,omitempty" yaml:"resilient,omitempty"`
	Conforms   []string `toml:"conforms,omitempty" yaml:"conforms,omitempty"`
}

// ConformanceSpec declares a normal conformance. Generic is the
// conformance's signature; its requirements make the conformance
// conditional.
type ConformanceSpec struct {
	Type      string            `toml:"type,omitempty" yaml:"type,omitempty"`
	Protocol  string            `toml:"protocol,omitempty" yaml:"protocol,omitempty"`
	Generic   string            `toml:"generic,omitempty" yaml:"generic,omitempty"`
	Witnesses map[string]string `toml:"witnesses,omitempty" yaml:"witnesses,omitempty"`
}

// MemberSpec declares a method of a nominal or protocol. Generic lists the
// member's own parameters only; the parent's are implied.
type MemberSpec struct {
	Name    string `toml:"name" yaml:"name"`
	Parent  string `toml:"parent,omitempty" yaml:"parent,omitempty"`
	Generic string `toml:"generic,omitempty" yaml:"generic,omitempty"`
}

// MapSpec describes one substitution map. Kind selects the construction;
// the fields each kind reads are listed on MapKind.
type MapSpec struct {
	Name         string   `toml:"name" yaml:"name"`
	Kind         string   `toml:"kind,omitempty" yaml:"kind,omitempty"`
	Signature    string   `toml:"signature,omitempty" yaml:"signature,omitempty"`
	Context      string   `toml:"context,omitempty" yaml:"context,omitempty"`
	Replacements []string `toml:"replacements,omitempty" yaml:"replacements,omitempty"`
	Conformances []string `toml:"conformances,omitempty" yaml:"conformances,omitempty"`
	Lookup       string   `toml:"lookup,omitempty" yaml:"lookup,omitempty"`

	Protocol string `toml:"protocol,omitempty" yaml:"protocol,omitempty"`
	Self     string `toml:"self,omitempty" yaml:"self,omitempty"`

	Base    string `toml:"base,omitempty" yaml:"base,omitempty"`
	Derived string `toml:"derived,omitempty" yaml:"derived,omitempty"`

	Nominal string `toml:"nominal,omitempty" yaml:"nominal,omitempty"`
	Target  string `toml:"target,omitempty" yaml:"target,omitempty"`

	First          string `toml:"first,omitempty" yaml:"first,omitempty"`
	Second         string `toml:"second,omitempty" yaml:"second,omitempty"`
	How            string `toml:"how,omitempty" yaml:"how,omitempty"`
	FirstBoundary  uint32 `toml:"first_boundary,omitempty" yaml:"first_boundary,omitempty"`
	SecondBoundary uint32 `toml:"second_boundary,omitempty" yaml:"second_boundary,omitempty"`

	Module  string `toml:"module,omitempty" yaml:"module,omitempty"`
	Maximal bool   `toml:"maximal,omitempty" yaml:"maximal,omitempty"`

	ExpectFault string `toml:"expect_fault,omitempty" yaml:"expect_fault,omitempty"`
}

// QuerySpec asks one question of a named map. Expect, when set, is compared
// against the rendered answer.
type QuerySpec struct {
	Name     string  `toml:"name" yaml:"name"`
	Map      string  `toml:"map,omitempty" yaml:"map,omitempty"`
	Kind     string  `toml:"kind,omitempty" yaml:"kind,omitempty"`
	Type     string  `toml:"type,omitempty" yaml:"type,omitempty"`
	Protocol string  `toml:"protocol,omitempty" yaml:"protocol,omitempty"`
	Expect   *string `toml:"expect,omitempty" yaml:"expect,omitempty"`
}
