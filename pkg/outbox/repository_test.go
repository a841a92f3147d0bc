package outbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/dealerhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/dealerhub-backend/pkg/db/models"
	"github.com/angelmondragon/dealerhub-backend/pkg/enums"
)

func TestClipKeepsRunesWhole(t *testing.T) {
	short := "broker unavailable"
	assert.Equal(t, short, clip(short))

	long := strings.Repeat("a", maxLastErrorLen-1) + "₹₹"
	got := clip(long)
	assert.LessOrEqual(t, len(got), maxLastErrorLen)
	assert.True(t, utf8.ValidString(got))
}

func TestRepositoryFailureLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventDealRated,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
	}
	require.NoError(t, repo.Insert(db, row))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkFailedTx(db, row.ID, errors.New("timeout")))
	require.NoError(t, repo.MarkTerminalTx(db, row.ID, errors.New("bad payload"), 3))

	pending, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)

	dlq := NewDLQRepository(db)
	msg := "bad payload"
	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
		AttemptCount:  3,
		FailedAt:      time.Now().UTC().Add(-48 * time.Hour),
	}))
	removed, err := dlq.DeleteBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
