package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}))
	return conn
}

func TestRepositoryCreateAndList(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	code := "WELCOME20"

	first, err := repo.Create(ctx, &models.Order{
		UserID:        userID,
		SubtotalCents: 2550,
		DiscountCents: 510,
		TotalCents:    2040,
		CouponCode:    &code,
		LinesJSON:     `[{"product_id":"` + uuid.NewString() + `","quantity":2}]`,
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	_, err = repo.Create(ctx, &models.Order{
		UserID:        userID,
		SubtotalCents: 1000,
		TotalCents:    1000,
		LinesJSON:     `[]`,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.Order{
		UserID:        uuid.New(),
		SubtotalCents: 99,
		TotalCents:    99,
		LinesJSON:     `[]`,
	})
	require.NoError(t, err)

	rows, err := repo.ListByUser(ctx, userID, 0, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, userID, row.UserID)
	}
}

func TestRepositoryWithTxRollback(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	userID := uuid.New()
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := repo.WithTx(tx).Create(ctx, &models.Order{
			UserID:        userID,
			SubtotalCents: 500,
			TotalCents:    500,
			LinesJSON:     `[]`,
		})
		require.NoError(t, err)
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	rows, err := repo.ListByUser(ctx, userID, 0, nil)
	require.NoError(t, err)
	require.Empty(t, rows)
}
