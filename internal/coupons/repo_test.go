package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDeactivateExpired(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now()

	userA := uuid.New()
	userB := uuid.New()
	mustCreateCoupon(t, repo, userA, "EXPIRED1", 10, now.Add(-time.Hour), true)
	mustCreateCoupon(t, repo, userA, "LIVE1", 10, now.Add(time.Hour), true)
	mustCreateCoupon(t, repo, userB, "EXPIRED2", 10, now.Add(-time.Minute), true)
	mustCreateCoupon(t, repo, userB, "ALREADYOFF", 10, now.Add(-time.Minute), false)

	affected, err := repo.DeactivateExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("deactivate expired: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 rows deactivated, got %d", affected)
	}

	liveA, err := repo.ListActiveByUser(ctx, userA)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(liveA) != 1 || liveA[0].Code != "LIVE1" {
		t.Fatalf("expected only LIVE1 active, got %+v", liveA)
	}

	again, err := repo.DeactivateExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected idempotent sweep, got %d rows", again)
	}
}

func TestDeactivateExpiredHonorsBatchLimit(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now()

	userID := uuid.New()
	for _, code := range []string{"B1", "B2", "B3"} {
		mustCreateCoupon(t, repo, userID, code, 10, now.Add(-time.Hour), true)
	}

	affected, err := repo.DeactivateExpired(ctx, now, 2)
	if err != nil {
		t.Fatalf("deactivate expired: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected batch of 2, got %d", affected)
	}

	rest, err := repo.DeactivateExpired(ctx, now, 2)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if rest != 1 {
		t.Fatalf("expected remaining 1, got %d", rest)
	}
}
