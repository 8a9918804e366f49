package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/hibiken/asynq"
)

var client *asynq.Client

// Init creates the asynq client used for best-effort email tasks.
func Init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client = asynq.NewClient(asynq.RedisClientOpt{Addr: addr})
}

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

func enqueue(taskType string, payload any) error {
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(taskType, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueWelcomeEmail schedules a welcome email to the user.
func EnqueueWelcomeEmail(userID, email, name string) error {
	env := EmailEnvelope{
		To:      email,
		Subject: fmt.Sprintf("Welcome to TuneHire, %s!", name),
		Body:    fmt.Sprintf("Hi %s, thanks for joining TuneHire.", name),
	}
	return enqueue(TaskWelcomeEmail, WelcomeEmailPayload{
		UserID: userID, Name: name, Email: email, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueOrderPaid notifies the seller that an order was paid and accepted.
func EnqueueOrderPaid(orderID, buyerID, sellerID, sellerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      sellerEmail,
		Subject: "You have a new paid order",
		Body:    fmt.Sprintf("Order %s has been paid. Amount %.2f.", orderID, float64(amount)/100),
	}
	return enqueue(TaskOrderPaid, OrderEventPayload{
		OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, Email: sellerEmail,
		Amount: amount, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueOrderCompleted notifies the buyer that the recording is delivered.
func EnqueueOrderCompleted(orderID, buyerID, sellerID, buyerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      buyerEmail,
		Subject: "Your recording is ready",
		Body:    fmt.Sprintf("Order %s has been completed.", orderID),
	}
	return enqueue(TaskOrderCompleted, OrderEventPayload{
		OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, Email: buyerEmail,
		Amount: amount, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueueOrderCancelled notifies the buyer that an order was cancelled.
func EnqueueOrderCancelled(orderID, buyerID, sellerID, buyerEmail string, amount int64) error {
	env := EmailEnvelope{
		To:      buyerEmail,
		Subject: "Your order was cancelled",
		Body:    fmt.Sprintf("Order %s has been cancelled.", orderID),
	}
	return enqueue(TaskOrderCancelled, OrderEventPayload{
		OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, Email: buyerEmail,
		Amount: amount, Envelope: env, SentAt: time.Now(),
	})
}

// truncateRunes caps s at max runes without splitting a multi-byte
// sequence.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// EnqueueMessageNew notifies the other participant of a new message.
func EnqueueMessageNew(orderID, senderID, recipientID, recipientEmail, preview string) error {
	preview = truncateRunes(preview, 120)
	env := EmailEnvelope{
		To:      recipientEmail,
		Subject: "New message on your order",
		Body:    preview,
	}
	return enqueue(TaskMessageNew, MessagePayload{
		OrderID: orderID, SenderID: senderID, RecipientID: recipientID,
		Email: recipientEmail, Preview: preview, Envelope: env, SentAt: time.Now(),
	})
}

// EnqueuePayoutRequested confirms a payout request to the seller.
func EnqueuePayoutRequested(payoutID, sellerID, sellerEmail string, amount int64, orderCount int) error {
	env := EmailEnvelope{
		To:      sellerEmail,
		Subject: "Your payout request was received",
		Body:    fmt.Sprintf("Payout %s for %.2f covering %d orders is pending.", payoutID, float64(amount)/100, orderCount),
	}
	return enqueue(TaskPayoutRequested, PayoutPayload{
		PayoutID: payoutID, SellerID: sellerID, Email: sellerEmail,
		Amount: amount, OrderCount: orderCount, Envelope: env, SentAt: time.Now(),
	})
}
