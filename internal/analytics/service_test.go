package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, totalCents int64, createdAt time.Time) {
	t.Helper()

	order := &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		SubtotalCents: totalCents,
		TotalCents:    totalCents,
		LinesJSON:     `[]`,
	}
	if err := conn.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	// autoCreateTime ignores preset values, so pin the timestamp after insert.
	if err := conn.Model(order).UpdateColumn("created_at", createdAt).Error; err != nil {
		t.Fatalf("pin created_at: %v", err)
	}
}

func TestSummaryAggregatesCounters(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		user := &models.User{Email: uuid.NewString() + "@example.com", PasswordHash: "h", Name: "U"}
		if err := conn.Create(user).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	product := &models.Product{Name: "Widget", PriceCents: 100, Category: "misc"}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	seedOrder(t, conn, 2040, time.Now().UTC())
	seedOrder(t, conn, 1000, time.Now().UTC())

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Users != 3 {
		t.Fatalf("expected 3 users, got %d", summary.Users)
	}
	if summary.Products != 1 {
		t.Fatalf("expected 1 product, got %d", summary.Products)
	}
	if summary.Orders != 2 {
		t.Fatalf("expected 2 orders, got %d", summary.Orders)
	}
	if summary.RevenueCents != 3040 {
		t.Fatalf("expected revenue 3040, got %d", summary.RevenueCents)
	}
}

func TestSummaryOnEmptyDatabase(t *testing.T) {
	svc, _ := newTestService(t)

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Orders != 0 || summary.RevenueCents != 0 {
		t.Fatalf("expected zero totals, got %+v", summary)
	}
}

func TestDailySalesBucketsAndZeroFills(t *testing.T) {
	svc, conn := newTestService(t)

	day1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 8, 3, 23, 30, 0, 0, time.UTC)
	seedOrder(t, conn, 500, day1)
	seedOrder(t, conn, 700, day1.Add(2*time.Hour))
	seedOrder(t, conn, 300, day3)
	// Outside the requested window.
	seedOrder(t, conn, 9999, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))

	buckets, err := svc.DailySales(context.Background(), day1, day3)
	if err != nil {
		t.Fatalf("daily sales: %v", err)
	}
	if len(buckets) != 3 {
		t.Fatalf("expected 3 day buckets, got %d", len(buckets))
	}
	if buckets[0].Date != "2026-08-01" || buckets[0].Sales != 2 || buckets[0].RevenueCents != 1200 {
		t.Fatalf("unexpected first bucket %+v", buckets[0])
	}
	if buckets[1].Date != "2026-08-02" || buckets[1].Sales != 0 || buckets[1].RevenueCents != 0 {
		t.Fatalf("expected zero-filled middle day, got %+v", buckets[1])
	}
	if buckets[2].Date != "2026-08-03" || buckets[2].Sales != 1 || buckets[2].RevenueCents != 300 {
		t.Fatalf("unexpected last bucket %+v", buckets[2])
	}
}

func TestDailySalesRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)

	from := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.DailySales(context.Background(), from, to); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
