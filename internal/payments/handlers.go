package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/authz"
	"github.com/tunehire/tunehire/internal/config"
	"github.com/tunehire/tunehire/internal/db"
	"github.com/tunehire/tunehire/internal/middleware"
	"github.com/tunehire/tunehire/internal/order"
	"github.com/tunehire/tunehire/internal/pricing"
	"github.com/tunehire/tunehire/internal/utils"
)

var (
	provider      Client
	webhookSecret string
	appURL        string
)

// Init wires the package to the configured provider. Tests swap the
// client with SetClient.
func Init(cfg *config.Config) {
	provider = NewClient(&cfg.Stripe)
	webhookSecret = cfg.Stripe.WebhookSecret
	appURL = cfg.AppURL
}

// SetClient replaces the provider client, for tests.
func SetClient(c Client) { provider = c }

// Onboard starts or resumes seller onboarding. A connected account is
// created on first call and reused afterwards; the response carries a
// fresh hosted onboarding URL either way.
func Onboard(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if d := authz.CanSell(sess); !d.Allowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "seller capability required"})
	}

	ctx := context.Background()
	var email string
	var accountID *string
	err := db.Conn.QueryRow(ctx,
		`SELECT email, stripe_account_id FROM users WHERE id = $1`, sess.UserID,
	).Scan(&email, &accountID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}

	if accountID == nil {
		acct, err := provider.CreateAccount(ctx, email)
		if err != nil {
			utils.Logger().Error("connected account creation failed", zap.String("user_id", sess.UserID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create payment account"})
		}
		if _, err := db.Conn.Exec(ctx,
			`UPDATE users SET stripe_account_id = $1, updated_at = NOW() WHERE id = $2`,
			acct.ID, sess.UserID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save payment account"})
		}
		accountID = &acct.ID
	}

	link, err := provider.CreateAccountLink(ctx, *accountID,
		appURL+"/seller/onboarding/refresh", appURL+"/seller/onboarding/return")
	if err != nil {
		utils.Logger().Error("account link creation failed", zap.String("user_id", sess.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create onboarding link"})
	}

	return c.JSON(http.StatusOK, echo.Map{"account_id": *accountID, "onboarding_url": link.URL})
}

// Status reports the seller's onboarding state from the provider and
// persists the flag when it changed, so reads stay cheap between
// webhooks.
func Status(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()
	var accountID *string
	var stored bool
	err := db.Conn.QueryRow(ctx,
		`SELECT stripe_account_id, stripe_onboarding_complete FROM users WHERE id = $1`, sess.UserID,
	).Scan(&accountID, &stored)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}
	if accountID == nil {
		return c.JSON(http.StatusOK, echo.Map{"onboarded": false, "has_account": false})
	}

	acct, err := provider.RetrieveAccount(ctx, *accountID)
	if err != nil {
		// Fall back to the stored flag when the provider is unreachable.
		utils.Logger().Warn("account retrieval failed", zap.String("account_id", *accountID), zap.Error(err))
		return c.JSON(http.StatusOK, echo.Map{"onboarded": stored, "has_account": true})
	}

	if acct.Onboarded() != stored {
		_, _ = db.Conn.Exec(ctx,
			`UPDATE users SET stripe_onboarding_complete = $1, updated_at = NOW() WHERE id = $2`,
			acct.Onboarded(), sess.UserID)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"onboarded":         acct.Onboarded(),
		"has_account":       true,
		"charges_enabled":   acct.ChargesEnabled,
		"payouts_enabled":   acct.PayoutsEnabled,
		"details_submitted": acct.DetailsSubmitted,
	})
}

// CreateIntent opens payment for a pending order. Only the buyer may
// pay, and only once the seller's account can receive funds. The fee
// split is computed here and stored on the order so the webhook and the
// payout ledger agree on the numbers.
func CreateIntent(c echo.Context) error {
	sess := middleware.SessionFrom(c)
	if d := authz.IsAuthenticated(sess); !d.Allowed {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx := context.Background()
	o, err := order.FetchByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch order"})
	}

	if o.BuyerID != sess.UserID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the buyer can pay for this order"})
	}
	if o.Status != order.StatusPending {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order is not awaiting payment"})
	}

	var sellerAccountID *string
	var sellerOnboarded bool
	err = db.Conn.QueryRow(ctx,
		`SELECT stripe_account_id, stripe_onboarding_complete FROM users WHERE id = $1`, o.SellerID,
	).Scan(&sellerAccountID, &sellerOnboarded)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch seller"})
	}
	if sellerAccountID == nil || !sellerOnboarded {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seller has not completed payment onboarding"})
	}

	var buyerEmail string
	_ = db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, sess.UserID).Scan(&buyerEmail)

	fee, sellerAmount := pricing.SplitFee(o.TotalPrice, pricing.PaymentFeeBps)
	transferGroup := "order_" + o.ID

	intent, err := provider.CreatePaymentIntent(ctx, IntentParams{
		AmountCents:   o.TotalPrice,
		Currency:      "usd",
		AppFeeCents:   fee,
		DestinationID: *sellerAccountID,
		TransferGroup: transferGroup,
		OrderID:       o.ID,
		ReceiptEmail:  buyerEmail,
	})
	if err != nil {
		utils.Logger().Error("payment intent creation failed", zap.String("order_id", o.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create payment"})
	}

	_, err = db.Conn.Exec(ctx, `
        UPDATE orders
        SET payment_intent_id = $1, transfer_group = $2, platform_fee = $3, seller_amount = $4, updated_at = NOW()
        WHERE id = $5
    `, intent.ID, transferGroup, fee, sellerAmount, o.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount":            o.TotalPrice,
		"platform_fee":      fee,
		"seller_amount":     sellerAmount,
	})
}
