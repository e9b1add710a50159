package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Fixture loading
	FixInfo             Code = 1000
	FixParse            Code = 1001
	FixUnknownFormat    Code = 1002
	FixDuplicateName    Code = 1003
	FixUnknownName      Code = 1004
	FixBadType          Code = 1005
	FixBadSignature     Code = 1006
	FixBadConformance   Code = 1007
	FixBadQuery         Code = 1008
	FixBadRequirement   Code = 1009
	FixDuplicateWitness Code = 1010

	// Map construction faults
	SubInfo             Code = 2000
	SubReplacementCount Code = 2001
	SubConformanceCount Code = 2002
	SubPackMismatch     Code = 2003

	// Map verification
	VerInfo               Code = 3000
	VerNotConcrete        Code = 3001
	VerWrongType          Code = 3002
	VerNotSelfConformance Code = 3003

	// Query expectations
	QryInfo            Code = 4000
	QryTypeMismatch    Code = 4001
	QryConfMismatch    Code = 4002
	QryIdentity        Code = 4003
	QryUnexpectedFault Code = 4004
	QryMissingFault    Code = 4005
	QryValueMismatch   Code = 4006

	// IO
	IOLoadFileError Code = 5001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		FixInfo:               "Fixture information",
		FixParse:              "Fixture does not parse",
		FixUnknownFormat:      "Unknown fixture format",
		FixDuplicateName:      "Duplicate name in fixture",
		FixUnknownName:        "Unknown name in fixture",
		FixBadType:            "Malformed type expression",
		FixBadSignature:       "Malformed generic signature",
		FixBadConformance:     "Malformed conformance declaration",
		FixBadQuery:           "Malformed query",
		FixBadRequirement:     "Malformed requirement",
		FixDuplicateWitness:   "Witness declared twice",
		SubInfo:               "Substitution information",
		SubReplacementCount:   "Replacement count does not match the signature",
		SubConformanceCount:   "Conformance count does not match the signature",
		SubPackMismatch:       "Pack-ness of replacement does not match its parameter",
		VerInfo:               "Verification information",
		VerNotConcrete:        "Concrete type carries non-concrete conformance",
		VerWrongType:          "Conformance is for a different type",
		VerNotSelfConformance: "Existential requires a self-conformance",
		QryInfo:               "Query information",
		QryTypeMismatch:       "Substituted type differs from expectation",
		QryConfMismatch:       "Conformance differs from expectation",
		QryIdentity:           "Identity expectation failed",
		QryUnexpectedFault:    "Unexpected substitution fault",
		QryMissingFault:       "Expected substitution fault did not occur",
		QryValueMismatch:      "Query answer differs from expectation",
		IOLoadFileError:       "Failed to load file",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("FIX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SUB%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("VER%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("QRY%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
