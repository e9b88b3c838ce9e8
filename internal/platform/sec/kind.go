// Copyright (c) 2026 Imma Platform. All rights reserved.

package sec

// # Principal Kinds

// PrincipalKind is the role discriminant for an authenticable account.
//
// It gates which registration attributes apply and which workflows a
// principal may enter. Email uniqueness is scoped per kind: a student and a
// university may register the same address.
type PrincipalKind string

const (
	// KindStudent is an individual applying for scholarships.
	KindStudent PrincipalKind = "student"

	// KindUniversity is an institution publishing scholarships.
	KindUniversity PrincipalKind = "university"
)

// ParseKind validates a client-supplied kind string.
func ParseKind(value string) (PrincipalKind, bool) {
	switch PrincipalKind(value) {
	case KindStudent:
		return KindStudent, true
	case KindUniversity:
		return KindUniversity, true
	default:
		return "", false
	}
}

// Valid reports whether the kind is one of the known discriminants.
func (k PrincipalKind) Valid() bool {
	return k == KindStudent || k == KindUniversity
}
