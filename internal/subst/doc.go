// Package subst implements substitution maps: for one generic signature, the
// replacement of every generic parameter plus the conformance evidence for
// every conformance requirement.
//
// Maps are immutable values backed by storage interned in a Context-owned
// Pool, so maps built from equal inputs compare equal with ==. Conformance
// evidence is a ConformanceRef, a tagged union of invalid, abstract,
// concrete and pack conformances. New maps come from the Get family, from
// Subst over an InFlight capability, and from the builders
// (ProtocolSubstitutions, OverrideSubstitutions, Combine).
package subst
