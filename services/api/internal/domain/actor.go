package domain

import "strings"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor is the authenticated caller of an engine operation, as supplied by
// the identity collaborator.
type Actor struct {
	ID   string
	Role Role
}

type Relation string

const (
	RelationIsBuyer         Relation = "is_buyer"
	RelationIsSeller        Relation = "is_seller"
	RelationIsBuyerOrSeller Relation = "is_buyer_or_seller"
	RelationIsAdmin         Relation = "is_admin"
)

// User is the directory projection used when validating counterparties.
type User struct {
	ID            string
	Role          Role
	PayoutDetails map[string]string
}
