// Package authz holds the reusable access predicates evaluated by handlers
// before they touch persisted state. Each predicate returns a Decision so
// the caller can map the denial reason onto the right HTTP status.
package authz

// Reason classifies why a Decision denied access.
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonNotParticipant  Reason = "not_participant"
	ReasonNotSeller       Reason = "not_seller"
	ReasonCannotSell      Reason = "cannot_sell"
	ReasonNotOwner        Reason = "not_owner"
)

// Decision is the result of an access predicate.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true, Reason: ReasonOK} }
func deny(r Reason) Decision { return Decision{Allowed: false, Reason: r} }

// Session is the authenticated caller as established by the JWT middleware.
// A zero Session means no credentials were presented.
type Session struct {
	UserID  string
	CanBuy  bool
	CanSell bool
}

// IsAuthenticated requires any valid session.
func IsAuthenticated(s Session) Decision {
	if s.UserID == "" {
		return deny(ReasonUnauthenticated)
	}
	return allow()
}

// IsOrderParticipant allows the order's buyer or seller and nobody else.
func IsOrderParticipant(s Session, buyerID, sellerID string) Decision {
	if d := IsAuthenticated(s); !d.Allowed {
		return d
	}
	if s.UserID != buyerID && s.UserID != sellerID {
		return deny(ReasonNotParticipant)
	}
	return allow()
}

// IsOrderSeller allows only the order's seller. Required for status and
// delivery mutations.
func IsOrderSeller(s Session, sellerID string) Decision {
	if d := IsAuthenticated(s); !d.Allowed {
		return d
	}
	if s.UserID != sellerID {
		return deny(ReasonNotSeller)
	}
	return allow()
}

// CanSell requires the selling capability flag. Needed for service and
// payout mutations.
func CanSell(s Session) Decision {
	if d := IsAuthenticated(s); !d.Allowed {
		return d
	}
	if !s.CanSell {
		return deny(ReasonCannotSell)
	}
	return allow()
}

// IsServiceOwner allows only the seller whose profile owns the service.
func IsServiceOwner(s Session, serviceOwnerID string) Decision {
	if d := CanSell(s); !d.Allowed {
		return d
	}
	if s.UserID != serviceOwnerID {
		return deny(ReasonNotOwner)
	}
	return allow()
}
