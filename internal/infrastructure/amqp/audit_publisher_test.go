package amqp_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/amqp"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

type fakeChannel struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp091.Publishing
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestAuditPublisher_PublicaMensajePersistente(t *testing.T) {
	ch := &fakeChannel{}
	p := amqp.NewAuditPublisher(ch, "stock-ledger", "activity-logs", logger.Nop())

	err := p.Record(context.Background(), entity.ActivityLog{
		ID: "log-1", Category: entity.CategoryBlazer, Action: "CREATE_SUCCESS",
		Summary: "Added 3 Male L blazers", RecordID: "rec-1",
	})
	require.NoError(t, err)

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "stock-ledger/activity-logs", ch.keys[0])
	msg := ch.msgs[0]
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "CREATE_SUCCESS", msg.Type)

	var body amqp.ActivityMessage
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "blazer_inventory", body.ModuleType)
	assert.Equal(t, "Blazer Inventory", body.ModuleName)
	assert.Equal(t, "rec-1", body.RecordID)
	assert.False(t, body.Timestamp.IsZero())
}

func TestAuditPublisher_ErrorDelCanal(t *testing.T) {
	p := amqp.NewAuditPublisher(&fakeChannel{err: assert.AnError}, "x", "y", logger.Nop())
	err := p.Record(context.Background(), entity.ActivityLog{Category: entity.CategoryKit})
	assert.ErrorIs(t, err, assert.AnError)
}
