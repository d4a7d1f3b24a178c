package orders

import (
	"fmt"

	"github.com/angelmondragon/marketcart/pkg/enums"
)

// TransitionReason says why a status change was refused.
type TransitionReason string

const (
	ReasonUnknownEdge     TransitionReason = "unknown_transition"
	ReasonActorNotAllowed TransitionReason = "actor_not_allowed"
	ReasonTerminal        TransitionReason = "terminal_status"
	ReasonNoop            TransitionReason = "no_op"
)

// TransitionError is returned for every refused (from, to, actor) triple.
type TransitionError struct {
	From   enums.OrderStatus `json:"from"`
	To     enums.OrderStatus `json:"to"`
	Actor  enums.ActorRole   `json:"actor"`
	Reason TransitionReason  `json:"reason"`
}

func (e *TransitionError) Error() string {
	switch e.Reason {
	case ReasonActorNotAllowed:
		return fmt.Sprintf("%s may not move an order from %s to %s", e.Actor, e.From, e.To)
	case ReasonTerminal:
		return fmt.Sprintf("order is %s and can no longer change", e.From)
	case ReasonNoop:
		return fmt.Sprintf("order is already %s", e.From)
	default:
		return fmt.Sprintf("no transition from %s to %s", e.From, e.To)
	}
}

// Edge is one allowed status change.
type Edge struct {
	From   enums.OrderStatus `json:"from"`
	To     enums.OrderStatus `json:"to"`
	Actors []enums.ActorRole `json:"actors"`
}

var transitions = []Edge{
	{From: enums.OrderStatusPendingPayment, To: enums.OrderStatusPaid, Actors: []enums.ActorRole{enums.ActorRolePayment}},
	{From: enums.OrderStatusPendingPayment, To: enums.OrderStatusPaymentFailed, Actors: []enums.ActorRole{enums.ActorRolePayment}},
	{From: enums.OrderStatusPendingPayment, To: enums.OrderStatusCancelled, Actors: []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleVendor}},
	{From: enums.OrderStatusPaymentFailed, To: enums.OrderStatusPendingPayment, Actors: []enums.ActorRole{enums.ActorRoleBuyer}},
	{From: enums.OrderStatusPaid, To: enums.OrderStatusProcessing, Actors: []enums.ActorRole{enums.ActorRoleVendor}},
	{From: enums.OrderStatusPaid, To: enums.OrderStatusCancelled, Actors: []enums.ActorRole{enums.ActorRoleVendor, enums.ActorRoleBuyer}},
	{From: enums.OrderStatusProcessing, To: enums.OrderStatusShipped, Actors: []enums.ActorRole{enums.ActorRoleVendor}},
	{From: enums.OrderStatusProcessing, To: enums.OrderStatusCancelled, Actors: []enums.ActorRole{enums.ActorRoleVendor}},
	{From: enums.OrderStatusShipped, To: enums.OrderStatusDelivered, Actors: []enums.ActorRole{enums.ActorRoleVendor, enums.ActorRoleCarrier}},
	{From: enums.OrderStatusDelivered, To: enums.OrderStatusCompleted, Actors: []enums.ActorRole{enums.ActorRoleBuyer}},
}

// Edges returns a copy of the transition table.
func Edges() []Edge {
	out := make([]Edge, len(transitions))
	for i, e := range transitions {
		out[i] = Edge{From: e.From, To: e.To, Actors: append([]enums.ActorRole(nil), e.Actors...)}
	}
	return out
}

func findEdge(from, to enums.OrderStatus) (Edge, bool) {
	for _, e := range transitions {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// CheckTransition returns nil when actor may move an order from one status to
// another, and a *TransitionError otherwise.
func CheckTransition(from, to enums.OrderStatus, actor enums.ActorRole) error {
	fail := func(reason TransitionReason) error {
		return &TransitionError{From: from, To: to, Actor: actor, Reason: reason}
	}
	if !from.IsValid() || !to.IsValid() {
		return fail(ReasonUnknownEdge)
	}
	if from == to {
		return fail(ReasonNoop)
	}
	if from.IsTerminal() {
		return fail(ReasonTerminal)
	}
	edge, ok := findEdge(from, to)
	if !ok {
		return fail(ReasonUnknownEdge)
	}
	for _, allowed := range edge.Actors {
		if allowed == actor {
			return nil
		}
	}
	return fail(ReasonActorNotAllowed)
}

// NextStatuses lists the statuses actor may move an order to from its current status.
func NextStatuses(from enums.OrderStatus, actor enums.ActorRole) []enums.OrderStatus {
	out := []enums.OrderStatus{}
	for _, e := range transitions {
		if e.From != from {
			continue
		}
		for _, allowed := range e.Actors {
			if allowed == actor {
				out = append(out, e.To)
				break
			}
		}
	}
	return out
}
