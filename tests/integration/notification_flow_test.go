package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardmint/cardmint/internal/background"
	"github.com/cardmint/cardmint/internal/repositories"
)

func TestNotificationOutbox_DispatchesEnqueuedRows(t *testing.T) {
	resetTables(t)
	ts := SetupTestServer(testDB)
	defer ts.Close()

	ctx := context.Background()

	ts.Notifications.Enqueue(ctx, "first@example.com", "Hello", "body one")
	ts.Notifications.Enqueue(ctx, "second@example.com", "Hello", "body two")

	pendingBefore, err := CountRows(ctx, testDB.Pool, "notifications", "status", "pending")
	require.NoError(t, err)
	require.Equal(t, 2, pendingBefore)

	notifier := &CapturingNotifier{}
	repo := repositories.NewNotificationRepository(testDB.DB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dispatcher := background.NewDispatcher(repo, notifier, logger, 20*time.Millisecond, 5)

	dispatchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		dispatcher.Start(dispatchCtx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(notifier.Sent()) >= 2
	}, 5*time.Second, 20*time.Millisecond, "dispatcher did not deliver the outbox")

	cancel()
	<-done

	sent := notifier.Sent()
	recipients := make(map[string]bool, len(sent))
	for _, msg := range sent {
		recipients[msg.Recipient] = true
	}
	assert.True(t, recipients["first@example.com"])
	assert.True(t, recipients["second@example.com"])

	sentRows, err := CountRows(ctx, testDB.Pool, "notifications", "status", "sent")
	require.NoError(t, err)
	assert.Equal(t, 2, sentRows)

	pendingAfter, err := CountRows(ctx, testDB.Pool, "notifications", "status", "pending")
	require.NoError(t, err)
	assert.Equal(t, 0, pendingAfter)
}
