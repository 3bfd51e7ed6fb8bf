package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTx captures outbox inserts. Only QueryRow is implemented.
type recordingTx struct {
	pgx.Tx
	args [][]any
}

func (tx *recordingTx) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	tx.args = append(tx.args, args)
	return idRow{id: int64(len(tx.args))}
}

type idRow struct{ id int64 }

func (r idRow) Scan(dest ...any) error {
	*dest[0].(*int64) = r.id
	*dest[1].(*time.Time) = time.Unix(0, 0)
	*dest[2].(*time.Time) = time.Unix(0, 0)
	return nil
}

func TestEnqueue(t *testing.T) {
	repo := NewRepository(nil)
	tx := &recordingTx{}

	err := repo.Enqueue(context.Background(), tx, "team", "t1",
		Message{RoutingKey: "milestone.transitioned", Payload: map[string]string{"to": "approved"}},
		Message{RoutingKey: "team.progress_changed", Payload: map[string]int{"progress": 50}},
	)
	require.NoError(t, err)
	require.Len(t, tx.args, 2)

	first := tx.args[0]
	assert.Equal(t, "team", first[0])
	assert.Equal(t, "t1", first[1])
	assert.Equal(t, "milestone.transitioned", first[2])
	assert.JSONEq(t, `{"to":"approved"}`, string(first[3].(json.RawMessage)))
	assert.Equal(t, StatusPending, first[4])
	assert.Equal(t, "team.progress_changed", tx.args[1][2])
}

func TestEnqueue_StopsAtUnmarshalablePayload(t *testing.T) {
	repo := NewRepository(nil)
	tx := &recordingTx{}

	err := repo.Enqueue(context.Background(), tx, "team", "t1",
		Message{RoutingKey: "bad.payload", Payload: make(chan int)},
		Message{RoutingKey: "never.sent", Payload: 1},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.payload")
	assert.Empty(t, tx.args)
}
