package alerts

import (
	"context"
	"encoding/json"
	"os"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/tunehire/tunehire/internal/utils"
)

// StartWorker runs the email task consumer in the background. Delivery is
// rendered and logged; wiring an SMTP provider only changes handleEmail.
func StartWorker() *asynq.Server {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: addr},
		asynq.Config{
			Concurrency: 5,
			Queues:      map[string]int{"emails": 1},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleEmail)
	mux.HandleFunc(TaskOrderPaid, handleEmail)
	mux.HandleFunc(TaskOrderCompleted, handleEmail)
	mux.HandleFunc(TaskOrderCancelled, handleEmail)
	mux.HandleFunc(TaskMessageNew, handleEmail)
	mux.HandleFunc(TaskPayoutRequested, handleEmail)

	go func() {
		if err := srv.Run(mux); err != nil {
			utils.Logger().Error("alerts worker stopped", zap.Error(err))
		}
	}()
	return srv
}

// envelopeOnly pulls the common envelope out of any task payload.
type envelopeOnly struct {
	Envelope EmailEnvelope `json:"envelope"`
}

func handleEmail(ctx context.Context, t *asynq.Task) error {
	var p envelopeOnly
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		utils.Logger().Error("bad alert payload", zap.String("task", t.Type()), zap.Error(err))
		return nil // drop, do not retry malformed payloads
	}

	utils.Logger().Info("email sent",
		zap.String("task", t.Type()),
		zap.String("to", p.Envelope.To),
		zap.String("subject", p.Envelope.Subject),
	)
	return nil
}
