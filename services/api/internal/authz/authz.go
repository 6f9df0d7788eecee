// Package authz decides which actor may act on which order. Every function is
// pure and total: an absent actor or an unknown relation is always denied.
package authz

import "github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"

// Allow reports whether actor holds rel with respect to order.
func Allow(actor *domain.Actor, order domain.Order, rel domain.Relation) bool {
	if actor == nil || actor.ID == "" {
		return false
	}
	switch rel {
	case domain.RelationIsBuyer:
		return isBuyer(actor, order)
	case domain.RelationIsSeller:
		return isSeller(actor, order)
	case domain.RelationIsBuyerOrSeller:
		return isBuyer(actor, order) || isSeller(actor, order)
	case domain.RelationIsAdmin:
		return actor.Role == domain.RoleAdmin
	default:
		return false
	}
}

// CanView reports whether actor may read order.
func CanView(actor *domain.Actor, order domain.Order) bool {
	return Allow(actor, order, domain.RelationIsAdmin) ||
		Allow(actor, order, domain.RelationIsBuyerOrSeller)
}

// Scope returns the listing filter for actor. The second result is false
// when the actor may not list anything.
func Scope(actor *domain.Actor) (domain.OrderFilter, bool) {
	if actor == nil || actor.ID == "" {
		return domain.OrderFilter{}, false
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return domain.OrderFilter{All: true}, true
	case domain.RoleBuyer:
		return domain.OrderFilter{Buyer: actor.ID}, true
	case domain.RoleSeller:
		return domain.OrderFilter{Seller: actor.ID}, true
	default:
		return domain.OrderFilter{}, false
	}
}

func isBuyer(actor *domain.Actor, order domain.Order) bool {
	return actor.Role == domain.RoleBuyer && order.Buyer != "" && actor.ID == order.Buyer
}

func isSeller(actor *domain.Actor, order domain.Order) bool {
	return actor.Role == domain.RoleSeller && order.Seller != "" && actor.ID == order.Seller
}
