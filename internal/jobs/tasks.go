// Package jobs holds the background tasks run by cmd/worker on asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TypeOrderCompleted is enqueued after a checkout commits.
const TypeOrderCompleted = "order:completed"

// IssuedVoucher is a voucher bought with the order, pass included.
type IssuedVoucher struct {
	Identifier string `json:"identifier"`
	Pass       string `json:"pass"`
	Value      string `json:"value"`
}

// OrderCompletedPayload describes a completed order for notification.
type OrderCompletedPayload struct {
	OrderID  string          `json:"orderId"`
	UserID   string          `json:"userId"`
	Email    string          `json:"email"`
	Total    string          `json:"total"`
	Vouchers []IssuedVoucher `json:"vouchers"`
}

// NewOrderCompletedTask builds the asynq task for p.
func NewOrderCompletedTask(p OrderCompletedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", TypeOrderCompleted, err)
	}
	return asynq.NewTask(TypeOrderCompleted, data, asynq.MaxRetry(10), asynq.Timeout(30*time.Second)), nil
}

// Enqueuer submits tasks to the queue.
type Enqueuer struct {
	Client *asynq.Client
}

// EnqueueOrderCompleted queues a notification for a completed order. The task
// id is derived from the order id, so repeated calls are rejected by asynq.
func (e Enqueuer) EnqueueOrderCompleted(ctx context.Context, p OrderCompletedPayload) error {
	task, err := NewOrderCompletedTask(p)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task, asynq.TaskID(TypeOrderCompleted+":"+p.OrderID)); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeOrderCompleted, err)
	}
	return nil
}
