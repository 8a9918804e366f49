package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	buyerID  = "buyer"
	sellerID = "seller"
)

func TestIsAuthenticated(t *testing.T) {
	assert.False(t, IsAuthenticated(Session{}).Allowed)
	assert.Equal(t, ReasonUnauthenticated, IsAuthenticated(Session{}).Reason)
	assert.True(t, IsAuthenticated(Session{UserID: "u1"}).Allowed)
}

func TestIsOrderParticipant(t *testing.T) {
	assert.True(t, IsOrderParticipant(Session{UserID: buyerID}, buyerID, sellerID).Allowed)
	assert.True(t, IsOrderParticipant(Session{UserID: sellerID}, buyerID, sellerID).Allowed)

	d := IsOrderParticipant(Session{UserID: "stranger"}, buyerID, sellerID)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotParticipant, d.Reason)

	d = IsOrderParticipant(Session{}, buyerID, sellerID)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
}

func TestIsOrderSeller(t *testing.T) {
	assert.True(t, IsOrderSeller(Session{UserID: sellerID}, sellerID).Allowed)

	// The buyer participates but may not mutate status or delivery.
	d := IsOrderSeller(Session{UserID: buyerID}, sellerID)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotSeller, d.Reason)
}

func TestCanSell(t *testing.T) {
	assert.True(t, CanSell(Session{UserID: "u1", CanSell: true}).Allowed)

	d := CanSell(Session{UserID: "u1", CanBuy: true})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCannotSell, d.Reason)

	assert.Equal(t, ReasonUnauthenticated, CanSell(Session{}).Reason)
}

func TestIsServiceOwner(t *testing.T) {
	owner := Session{UserID: "u1", CanSell: true}
	assert.True(t, IsServiceOwner(owner, "u1").Allowed)

	d := IsServiceOwner(owner, "u2")
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotOwner, d.Reason)

	// canSell is checked before ownership.
	d = IsServiceOwner(Session{UserID: "u1"}, "u1")
	assert.Equal(t, ReasonCannotSell, d.Reason)
}
