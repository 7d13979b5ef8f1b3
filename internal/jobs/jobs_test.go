package jobs_test

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/jobs"
)

func TestHandleOrderCompletedMailsPasses(t *testing.T) {
	mail := &common.InMemoryEmail{}
	h := &jobs.Handler{Email: mail, From: "shop@example.com", Logger: zerolog.Nop()}

	task, err := jobs.NewOrderCompletedTask(jobs.OrderCompletedPayload{
		OrderID: "o-1",
		Email:   "kim@example.com",
		Total:   "30 EUR",
		Vouchers: []jobs.IssuedVoucher{
			{Identifier: "v-1", Pass: "ABCD1234", Value: "10 EUR"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, h.HandleOrderCompleted(context.Background(), task))

	sent := mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "kim@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, "ABCD1234")
	assert.Contains(t, sent[0].Text, "30 EUR")
}

func TestHandleOrderCompletedSkipsBadPayload(t *testing.T) {
	h := &jobs.Handler{Email: &common.InMemoryEmail{}, Logger: zerolog.Nop()}
	err := h.HandleOrderCompleted(context.Background(), asynq.NewTask(jobs.TypeOrderCompleted, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestEnqueueOrderCompletedIsUniquePerOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	e := jobs.Enqueuer{Client: client}

	p := jobs.OrderCompletedPayload{OrderID: "o-42", Email: "a@b.c"}
	require.NoError(t, e.EnqueueOrderCompleted(context.Background(), p))
	err := e.EnqueueOrderCompleted(context.Background(), p)
	require.ErrorIs(t, err, asynq.ErrTaskIDConflict)
}
