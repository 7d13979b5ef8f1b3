package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/videoshop/internal/common"
)

// Handler processes queued tasks.
type Handler struct {
	Email  common.EmailSender
	From   string
	Logger zerolog.Logger
}

// Mux routes every task type to its Handler method.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrderCompleted, h.HandleOrderCompleted)
	return mux
}

// HandleOrderCompleted mails the order summary and the passes of any vouchers
// bought with it. Malformed payloads are not retried.
func (h *Handler) HandleOrderCompleted(ctx context.Context, t *asynq.Task) error {
	var p OrderCompletedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s: %v: %w", TypeOrderCompleted, err, asynq.SkipRetry)
	}
	if p.Email == "" {
		h.Logger.Warn().Str("order_id", p.OrderID).Msg("order completed without recipient; notification skipped")
		return nil
	}
	msg := common.Email{
		From:    h.From,
		To:      p.Email,
		Subject: "Your videoshop order " + p.OrderID,
		Text:    orderText(p),
	}
	if err := h.Email.Send(ctx, msg); err != nil {
		return fmt.Errorf("send order %s mail: %w", p.OrderID, err)
	}
	h.Logger.Info().Str("order_id", p.OrderID).Int("vouchers", len(p.Vouchers)).Msg("order notification sent")
	return nil
}

func orderText(p OrderCompletedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\nTotal: %s\n", p.OrderID, p.Total)
	if len(p.Vouchers) > 0 {
		b.WriteString("\nYour gift vouchers:\n")
		for _, v := range p.Vouchers {
			fmt.Fprintf(&b, "  id %s  pass %s  value %s\n", v.Identifier, v.Pass, v.Value)
		}
	}
	return b.String()
}
