package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/domain/billing"
	"github.com/highprosper/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupPaymentMockDB opens gorm over a sqlmock connection so the test can
// assert the exact SQL the repository issues against Postgres.
func setupPaymentMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestPaymentRepository_ExistsByReference(t *testing.T) {
	db, mock := setupPaymentMockDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	t.Run("existing reference", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "payments" WHERE reference = $1`)).
			WithArgs("MTN-001").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByReference(ctx, "MTN-001")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("fresh reference", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "payments" WHERE reference = $1`)).
			WithArgs("MTN-002").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		exists, err := repo.ExistsByReference(ctx, "MTN-002")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_FindByReference(t *testing.T) {
	db, mock := setupPaymentMockDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	columns := []string{
		"id", "created_at", "updated_at", "version",
		"reference", "external_id", "customer_id", "invoice_id",
		"amount", "method", "status", "collector_id", "received_at", "failure_note",
	}
	id := uuid.New()
	customerID := uuid.New()
	receivedAt := time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC)

	t.Run("maps the row to the domain payment", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE reference = $1`)).
			WithArgs("MTN-001", 1).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id, receivedAt, receivedAt, 2,
				"MTN-001", "ft-abc", customerID, nil,
				"5000", "momo", "successful", nil, receivedAt, "",
			))

		p, err := repo.FindByReference(ctx, "MTN-001")
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, customerID, p.CustomerID)
		assert.Equal(t, billing.PaymentMethodMoMo, p.Method)
		assert.Equal(t, billing.PaymentStatusSuccessful, p.Status)
		assert.True(t, p.Amount.Equal(decimal.RequireFromString("5000")))
		assert.Equal(t, 2, p.Version)
	})

	t.Run("missing reference maps to not-found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE reference = $1`)).
			WithArgs("MTN-MISSING", 1).
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.FindByReference(ctx, "MTN-MISSING")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_FindByCollector_Query(t *testing.T) {
	db, mock := setupPaymentMockDB(t)
	repo := NewGormPaymentRepository(db)
	ctx := context.Background()

	collectorID := uuid.New()
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payments" WHERE collector_id = $1 AND received_at >= $2 AND status = $3 ORDER BY received_at ASC`)).
		WithArgs(collectorID, since, "successful").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	payments, err := repo.FindByCollector(ctx, collectorID, since)
	require.NoError(t, err)
	assert.Empty(t, payments)
	require.NoError(t, mock.ExpectationsWereMet())
}
