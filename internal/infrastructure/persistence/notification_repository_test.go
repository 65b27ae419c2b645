package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/notification"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/highprosper/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupNotificationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.NotificationModel{})
	require.NoError(t, err)

	return db
}

func TestNotificationRepository_Feed(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	recipient := uuid.New()

	reminder, err := notification.New(recipient, notification.KindInvoiceReminder, "Invoice due", "Your March invoice is due", notification.Payload{"invoice_uid": "INV-0AF31B22C4D5E6F7"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, reminder))

	payment, err := notification.New(recipient, notification.KindPaymentReceived, "Payment received", "", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, payment))

	other, err := notification.New(uuid.New(), notification.KindSystem, "Maintenance window", "", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, other))

	t.Run("returns only the recipient's items", func(t *testing.T) {
		feed, err := repo.FindByRecipient(ctx, recipient, shared.Filter{})
		require.NoError(t, err)
		assert.Len(t, feed, 2)
	})

	t.Run("filters by kind", func(t *testing.T) {
		filter := shared.Filter{Filters: map[string]interface{}{"kind": string(notification.KindInvoiceReminder)}}
		feed, err := repo.FindByRecipient(ctx, recipient, filter)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, "Invoice due", feed[0].Title)
		assert.Equal(t, "INV-0AF31B22C4D5E6F7", feed[0].Payload["invoice_uid"])
	})
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	recipient := uuid.New()
	for i := 0; i < 3; i++ {
		n, err := notification.New(recipient, notification.KindSystem, "Notice", "", nil)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, n))
	}

	count, err := repo.UnreadCount(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	at := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	marked, err := repo.MarkAllRead(ctx, recipient, at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)

	t.Run("second pass changes nothing", func(t *testing.T) {
		marked, err := repo.MarkAllRead(ctx, recipient, at.Add(time.Hour))
		require.NoError(t, err)
		assert.Zero(t, marked)

		count, err := repo.UnreadCount(ctx, recipient)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
