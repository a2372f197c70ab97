// Package booking holds the booking lifecycle rules: the set of statuses a
// booking moves through, which actions move it, who may trigger them, and
// how the price of a booking is derived.  It has no I/O; the service layer
// applies these rules inside database transactions.
package booking

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a booking as stored in bookings.status.
type Status string

const (
	StatusPendingAcceptance   Status = "pending_performer_acceptance"
	StatusPendingVetting      Status = "pending_vetting"
	StatusDepositPending      Status = "deposit_pending"
	StatusPendingDepositCheck Status = "pending_deposit_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusCompleted           Status = "completed"
	StatusRejected            Status = "rejected"
	StatusCancelled           Status = "cancelled"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []Status{
	StatusPendingAcceptance,
	StatusPendingVetting,
	StatusDepositPending,
	StatusPendingDepositCheck,
	StatusConfirmed,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal reports whether no further action can move a booking out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// Action names a step of the workflow.  Actions are recorded verbatim in
// the audit log.
type Action string

const (
	ActionCreate         Action = "create"
	ActionAccept         Action = "accept"
	ActionDecline        Action = "decline"
	ActionApproveVetting Action = "approve_vetting"
	ActionRejectVetting  Action = "reject_vetting"
	ActionSubmitDeposit  Action = "submit_deposit"
	ActionVerifyDeposit  Action = "verify_deposit"
	ActionRejectDeposit  Action = "reject_deposit"
	ActionCardPayment    Action = "card_payment"
	ActionCancel         Action = "cancel"
	ActionComplete       Action = "complete"
	ActionExpire         Action = "expire"
)

// Role identifies who triggers an action.  The first three mirror the user
// roles stored in users.role; RoleSystem is used for webhooks, the expiry
// sweep and the auto-vetting bypass.
type Role string

const (
	RoleClient    Role = "CLIENT"
	RolePerformer Role = "PERFORMER"
	RoleAdmin     Role = "ADMIN"
	RoleSystem    Role = "SYSTEM"
)

var (
	// ErrInvalidTransition is returned when action cannot be applied to a
	// booking in its current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotAllowed is returned when the actor's role may not perform the
	// action at all.
	ErrNotAllowed = errors.New("action not allowed for role")
	// ErrUnknownAction is returned for actions missing from the table.
	ErrUnknownAction = errors.New("unknown action")
)

type rule struct {
	from   []Status
	to     Status
	actors []Role
}

// nonTerminal is filled in init so the cancel rule stays in sync with
// AllStatuses.
var nonTerminal []Status

var rules = map[Action]rule{
	ActionAccept: {
		from:   []Status{StatusPendingAcceptance},
		to:     StatusPendingVetting,
		actors: []Role{RolePerformer, RoleAdmin},
	},
	ActionDecline: {
		from:   []Status{StatusPendingAcceptance},
		to:     StatusRejected,
		actors: []Role{RolePerformer, RoleAdmin},
	},
	ActionApproveVetting: {
		from:   []Status{StatusPendingVetting},
		to:     StatusDepositPending,
		actors: []Role{RoleAdmin, RoleSystem},
	},
	ActionRejectVetting: {
		from:   []Status{StatusPendingVetting},
		to:     StatusRejected,
		actors: []Role{RoleAdmin},
	},
	ActionSubmitDeposit: {
		from:   []Status{StatusDepositPending},
		to:     StatusPendingDepositCheck,
		actors: []Role{RoleClient, RoleAdmin},
	},
	ActionVerifyDeposit: {
		from:   []Status{StatusPendingDepositCheck},
		to:     StatusConfirmed,
		actors: []Role{RoleAdmin},
	},
	ActionRejectDeposit: {
		from:   []Status{StatusPendingDepositCheck},
		to:     StatusDepositPending,
		actors: []Role{RoleAdmin},
	},
	ActionCardPayment: {
		from:   []Status{StatusDepositPending, StatusPendingDepositCheck},
		to:     StatusConfirmed,
		actors: []Role{RoleSystem},
	},
	ActionComplete: {
		from:   []Status{StatusConfirmed},
		to:     StatusCompleted,
		actors: []Role{RoleAdmin},
	},
	ActionExpire: {
		from:   []Status{StatusPendingAcceptance, StatusDepositPending},
		to:     StatusCancelled,
		actors: []Role{RoleSystem},
	},
}

func init() {
	for _, s := range AllStatuses {
		if !s.Terminal() {
			nonTerminal = append(nonTerminal, s)
		}
	}
	rules[ActionCancel] = rule{
		from:   nonTerminal,
		to:     StatusCancelled,
		actors: []Role{RoleClient, RoleAdmin},
	}
}

// Next returns the status a booking in from moves to when actor performs
// action.  It only applies the role-level table; whether the actor owns the
// booking is checked by the caller.
//
// A client may cancel only before the booking is confirmed.
func Next(from Status, action Action, actor Role) (Status, error) {
	r, ok := rules[action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if !containsRole(r.actors, actor) {
		return "", fmt.Errorf("%w: %s cannot %s", ErrNotAllowed, actor, action)
	}
	if !containsStatus(r.from, from) {
		return "", fmt.Errorf("%w: cannot %s a booking that is %s", ErrInvalidTransition, action, from)
	}
	if action == ActionCancel && actor == RoleClient && from == StatusConfirmed {
		return "", fmt.Errorf("%w: confirmed bookings can only be cancelled by an admin", ErrNotAllowed)
	}
	return r.to, nil
}

// AllowedActions lists the actions actor may apply to a booking in status s.
// Handlers expose this so a UI can render only valid buttons.
func AllowedActions(s Status, actor Role) []Action {
	order := []Action{
		ActionAccept, ActionDecline, ActionApproveVetting, ActionRejectVetting,
		ActionSubmitDeposit, ActionVerifyDeposit, ActionRejectDeposit,
		ActionCardPayment, ActionCancel, ActionComplete, ActionExpire,
	}
	var out []Action
	for _, a := range order {
		if _, err := Next(s, a, actor); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// RequiresReason reports whether action must carry a human-readable reason.
func RequiresReason(action Action) bool {
	switch action {
	case ActionDecline, ActionRejectVetting, ActionRejectDeposit:
		return true
	}
	return false
}

func containsRole(list []Role, r Role) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
