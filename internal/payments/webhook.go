package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/alerts"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/messaging"
	"github.com/tunehire/tunehire/internal/metrics"
	"github.com/tunehire/tunehire/internal/order"
	"github.com/tunehire/tunehire/internal/pricing"
	"github.com/tunehire/tunehire/internal/utils"
)

// signatureTolerance bounds how stale a signed webhook may be before we
// reject it as a possible replay.
const signatureTolerance = 5 * time.Minute

var (
	errSignatureFormat = errors.New("malformed signature header")
	errSignatureStale  = errors.New("signature timestamp outside tolerance")
	errSignatureMatch  = errors.New("no matching signature")
)

// VerifySignature checks a provider signature header of the form
// "t=<unix>,v1=<hex hmac>" against the raw payload. The signed string is
// "<timestamp>.<payload>". Multiple v1 entries are accepted if any one
// matches, which covers secret rotation.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	var timestamp int64
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return errSignatureFormat
			}
			timestamp = ts
		case "v1":
			candidates = append(candidates, kv[1])
		}
	}
	if timestamp == 0 || len(candidates) == 0 {
		return errSignatureFormat
	}

	age := now.Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errSignatureStale
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return errSignatureMatch
}

// Event is the minimal webhook envelope we parse before dispatching on
// the event type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// intentObject is the slice of a payment_intent event object we use.
type intentObject struct {
	ID       string `json:"id"`
	Metadata struct {
		OrderID string `json:"orderId"`
	} `json:"metadata"`
	TransferGroup string `json:"transfer_group"`
	LastError     struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// transferObject is the slice of a transfer event object we use.
type transferObject struct {
	ID       string `json:"id"`
	Metadata struct {
		OrderID string `json:"orderId"`
	} `json:"metadata"`
	TransferGroup string `json:"transfer_group"`
}

// Webhook ingests provider events. A bad signature is rejected with 400
// and nothing is mutated. After the signature checks out we always ack
// with 200, logging processing failures instead of surfacing them, so
// the provider does not retry events we cannot act on.
func Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload"})
	}

	header := c.Request().Header.Get("Stripe-Signature")
	if err := VerifySignature(payload, header, webhookSecret, time.Now()); err != nil {
		utils.Logger().Warn("webhook signature rejected", zap.Error(err))
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil || evt.ID == "" {
		utils.Logger().Warn("webhook payload unparseable", zap.Error(err))
		metrics.WebhookEventsTotal.WithLabelValues("unknown", "malformed").Inc()
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	ctx := context.Background()

	// First delivery wins; replays of the same event id are acked and
	// dropped.
	tag, err := db.Conn.Exec(ctx,
		`INSERT INTO webhook_events (event_id, event_type) VALUES ($1, $2)
         ON CONFLICT (event_id) DO NOTHING`, evt.ID, evt.Type)
	if err != nil {
		utils.Logger().Error("webhook dedup insert failed", zap.String("event_id", evt.ID), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}
	if tag.RowsAffected() == 0 {
		metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "duplicate").Inc()
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	if err := dispatch(ctx, evt); err != nil {
		utils.Logger().Error("webhook processing failed",
			zap.String("event_id", evt.ID), zap.String("type", evt.Type), zap.Error(err))
		metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "error").Inc()
	} else {
		metrics.WebhookEventsTotal.WithLabelValues(evt.Type, "ok").Inc()
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}

func dispatch(ctx context.Context, evt Event) error {
	switch evt.Type {
	case "payment_intent.succeeded":
		return handlePaymentSucceeded(ctx, evt)
	case "payment_intent.payment_failed":
		return handlePaymentFailed(ctx, evt)
	case "account.updated":
		return handleAccountUpdated(ctx, evt)
	case "transfer.created":
		return handleTransferCreated(ctx, evt)
	default:
		// Unknown types are acked so the provider stops retrying.
		utils.Logger().Debug("webhook event ignored", zap.String("type", evt.Type))
		return nil
	}
}

// orderForIntent resolves the order an intent event refers to, trying
// the metadata order id first and falling back to the stored intent id.
func orderForIntent(ctx context.Context, obj intentObject) (order.Order, error) {
	if obj.Metadata.OrderID != "" {
		o, err := order.FetchByID(ctx, obj.Metadata.OrderID)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, err
		}
	}
	return order.FetchByIntentID(ctx, obj.ID)
}

func handlePaymentSucceeded(ctx context.Context, evt Event) error {
	var obj intentObject
	if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
		return fmt.Errorf("parse intent object: %w", err)
	}

	o, err := orderForIntent(ctx, obj)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.Logger().Warn("payment succeeded for unknown order", zap.String("intent_id", obj.ID))
			return nil
		}
		return err
	}

	next, changed := order.ApplyPaymentSucceeded(o.Status)
	if !changed {
		return nil
	}

	fee, sellerAmount := pricing.SplitFee(o.TotalPrice, pricing.PaymentFeeBps)
	_, err = db.Conn.Exec(ctx, `
        UPDATE orders
        SET status = $1, payment_intent_id = $2, transfer_group = $3,
            platform_fee = $4, seller_amount = $5, updated_at = NOW()
        WHERE id = $6 AND status = $7
    `, next, obj.ID, obj.TransferGroup, fee, sellerAmount, o.ID, o.Status)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	messaging.PublishOrderStatus(o.ID, string(next))

	ref := o.ID
	_ = alerts.CreateNotification(o.SellerID, "order:paid", "Order paid, time to record", o.Title, &ref)
	var sellerEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, o.SellerID).Scan(&sellerEmail)
	if sellerEmail != "" {
		_ = alerts.EnqueueOrderPaid(o.ID, o.BuyerID, o.SellerID, sellerEmail, o.TotalPrice)
	}

	utils.Logger().Info("order payment captured",
		zap.String("order_id", o.ID), zap.String("intent_id", obj.ID), zap.Int64("amount", o.TotalPrice))
	return nil
}

func handlePaymentFailed(ctx context.Context, evt Event) error {
	var obj intentObject
	if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
		return fmt.Errorf("parse intent object: %w", err)
	}

	o, err := orderForIntent(ctx, obj)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.Logger().Warn("payment failed for unknown order", zap.String("intent_id", obj.ID))
			return nil
		}
		return err
	}

	next, changed := order.ApplyPaymentFailed(o.Status)
	if !changed {
		return nil
	}

	_, err = db.Conn.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		next, o.ID, o.Status)
	if err != nil {
		return fmt.Errorf("mark order cancelled: %w", err)
	}

	messaging.PublishOrderStatus(o.ID, string(next))

	ref := o.ID
	_ = alerts.CreateNotification(o.BuyerID, "order:payment_failed", "Payment failed", obj.LastError.Message, &ref)

	utils.Logger().Info("order payment failed",
		zap.String("order_id", o.ID), zap.String("intent_id", obj.ID), zap.String("reason", obj.LastError.Message))
	return nil
}

func handleAccountUpdated(ctx context.Context, evt Event) error {
	var acct Account
	if err := json.Unmarshal(evt.Data.Object, &acct); err != nil {
		return fmt.Errorf("parse account object: %w", err)
	}
	if acct.ID == "" {
		return nil
	}

	tag, err := db.Conn.Exec(ctx, `
        UPDATE users SET stripe_onboarding_complete = $1, updated_at = NOW()
        WHERE stripe_account_id = $2 AND stripe_onboarding_complete <> $1
    `, acct.Onboarded(), acct.ID)
	if err != nil {
		return fmt.Errorf("update onboarding flag: %w", err)
	}
	if tag.RowsAffected() > 0 {
		utils.Logger().Info("seller onboarding state changed",
			zap.String("account_id", acct.ID), zap.Bool("onboarded", acct.Onboarded()))
	}
	return nil
}

func handleTransferCreated(ctx context.Context, evt Event) error {
	var obj transferObject
	if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
		return fmt.Errorf("parse transfer object: %w", err)
	}

	// Best-effort bookkeeping. The metadata order id is authoritative;
	// the transfer group set at intent creation covers transfers created
	// without metadata.
	if obj.Metadata.OrderID != "" {
		_, err := db.Conn.Exec(ctx,
			`UPDATE orders SET transfer_id = $1, updated_at = NOW() WHERE id = $2`,
			obj.ID, obj.Metadata.OrderID)
		if err != nil {
			return fmt.Errorf("attach transfer id: %w", err)
		}
		return nil
	}
	if obj.TransferGroup == "" {
		return nil
	}

	_, err := db.Conn.Exec(ctx,
		`UPDATE orders SET transfer_id = $1, updated_at = NOW() WHERE transfer_group = $2`,
		obj.ID, obj.TransferGroup)
	if err != nil {
		return fmt.Errorf("attach transfer id: %w", err)
	}
	return nil
}
