package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	now := time.Now()

	t.Run("valid", func(t *testing.T) {
		header := sign(payload, secret, now)
		assert.NoError(t, VerifySignature(payload, header, secret, now))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := sign(payload, "whsec_other", now)
		assert.Error(t, VerifySignature(payload, header, secret, now))
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := sign(payload, secret, now)
		tampered := []byte(`{"id":"evt_2","type":"payment_intent.succeeded"}`)
		assert.Error(t, VerifySignature(tampered, header, secret, now))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		old := now.Add(-10 * time.Minute)
		header := sign(payload, secret, old)
		assert.Error(t, VerifySignature(payload, header, secret, now))
	})

	t.Run("future timestamp outside tolerance", func(t *testing.T) {
		future := now.Add(10 * time.Minute)
		header := sign(payload, secret, future)
		assert.Error(t, VerifySignature(payload, header, secret, now))
	})

	t.Run("within tolerance", func(t *testing.T) {
		recent := now.Add(-2 * time.Minute)
		header := sign(payload, secret, recent)
		assert.NoError(t, VerifySignature(payload, header, secret, now))
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.Error(t, VerifySignature(payload, "", secret, now))
		assert.Error(t, VerifySignature(payload, "t=abc,v1=def", secret, now))
		assert.Error(t, VerifySignature(payload, "v1=deadbeef", secret, now))
		assert.Error(t, VerifySignature(payload, fmt.Sprintf("t=%d", now.Unix()), secret, now))
	})

	t.Run("second v1 entry matches after rotation", func(t *testing.T) {
		good := sign(payload, secret, now)
		header := fmt.Sprintf("t=%d,v1=%s,%s", now.Unix(), "00ff00ff", good[len(fmt.Sprintf("t=%d,", now.Unix())):])
		assert.NoError(t, VerifySignature(payload, header, secret, now))
	})
}

func TestEventParsing(t *testing.T) {
	raw := []byte(`{
        "id": "evt_abc",
        "type": "payment_intent.succeeded",
        "data": {
            "object": {
                "id": "pi_123",
                "transfer_group": "order_o1",
                "metadata": {"orderId": "o1"}
            }
        }
    }`)

	var evt Event
	require.NoError(t, json.Unmarshal(raw, &evt))
	assert.Equal(t, "evt_abc", evt.ID)
	assert.Equal(t, "payment_intent.succeeded", evt.Type)

	var obj intentObject
	require.NoError(t, json.Unmarshal(evt.Data.Object, &obj))
	assert.Equal(t, "pi_123", obj.ID)
	assert.Equal(t, "o1", obj.Metadata.OrderID)
	assert.Equal(t, "order_o1", obj.TransferGroup)
}

func TestTransferObjectParsing(t *testing.T) {
	// A transfer can arrive with metadata only, no transfer_group; the
	// order id must still come through.
	raw := []byte(`{
        "id": "tr_1",
        "metadata": {"orderId": "o1"},
        "transfer_group": ""
    }`)

	var obj transferObject
	require.NoError(t, json.Unmarshal(raw, &obj))
	assert.Equal(t, "tr_1", obj.ID)
	assert.Equal(t, "o1", obj.Metadata.OrderID)
	assert.Empty(t, obj.TransferGroup)

	raw = []byte(`{"id": "tr_2", "transfer_group": "order_o2"}`)
	obj = transferObject{}
	require.NoError(t, json.Unmarshal(raw, &obj))
	assert.Empty(t, obj.Metadata.OrderID)
	assert.Equal(t, "order_o2", obj.TransferGroup)
}

func TestAccountOnboarded(t *testing.T) {
	assert.True(t, Account{ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}.Onboarded())
	assert.False(t, Account{ChargesEnabled: true, PayoutsEnabled: true}.Onboarded())
	assert.False(t, Account{DetailsSubmitted: true, PayoutsEnabled: true}.Onboarded())
	assert.False(t, Account{}.Onboarded())

	// payouts_enabled lagging must not block a seller who has submitted
	// details and can accept charges.
	assert.True(t, Account{ChargesEnabled: true, DetailsSubmitted: true, PayoutsEnabled: false}.Onboarded())
}
