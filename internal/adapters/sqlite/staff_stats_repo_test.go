package sqlite_test

import (
	"context"
	"testing"

	"github.com/example/modmail/internal/adapters/sqlite"
)

func TestStaffStatsRepository_AddRating(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewStaffStatsRepository(database)
	ctx := context.Background()

	if err := repo.AddRating(ctx, "staff-1", 4); err != nil {
		t.Fatalf("AddRating failed: %v", err)
	}
	if err := repo.AddRating(ctx, "staff-1", 5); err != nil {
		t.Fatalf("AddRating failed: %v", err)
	}

	_, _, count, sum := statsRow(t, database, "staff-1")
	if count != 2 {
		t.Errorf("expected rating_count 2, got %d", count)
	}
	if sum != 9 {
		t.Errorf("expected rating_sum 9, got %d", sum)
	}
}

func TestStaffStatsRepository_AddRating_LazyRow(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewStaffStatsRepository(database)

	// The staff member has never claimed or closed anything.
	if err := repo.AddRating(context.Background(), "staff-new", 3); err != nil {
		t.Fatalf("AddRating failed: %v", err)
	}

	claimed, closed, count, sum := statsRow(t, database, "staff-new")
	if claimed != 0 || closed != 0 {
		t.Errorf("expected zero claim/close counters, got %d/%d", claimed, closed)
	}
	if count != 1 || sum != 3 {
		t.Errorf("expected rating 1/3, got %d/%d", count, sum)
	}
}

func TestStaffStatsRepository_List_OrderedByClaimed(t *testing.T) {
	database := setupTestDB(t)
	statsRepo := sqlite.NewStaffStatsRepository(database)
	ticketRepo := sqlite.NewTicketRepository(database)
	ctx := context.Background()

	// staff-2 claims twice, staff-1 once.
	createTestTicket(t, ticketRepo, "user-1", "thread-1", "BILLING")
	createTestTicket(t, ticketRepo, "user-2", "thread-2", "BILLING")
	createTestTicket(t, ticketRepo, "user-3", "thread-3", "BILLING")
	if err := ticketRepo.Claim(ctx, "thread-1", "staff-2"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := ticketRepo.Claim(ctx, "thread-2", "staff-2"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := ticketRepo.Claim(ctx, "thread-3", "staff-1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	stats, err := statsRepo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[0].StaffID != "staff-2" || stats[0].Claimed != 2 {
		t.Errorf("expected staff-2 with 2 claims first, got %+v", stats[0])
	}
	if stats[1].StaffID != "staff-1" || stats[1].Claimed != 1 {
		t.Errorf("expected staff-1 with 1 claim second, got %+v", stats[1])
	}
}

func TestStaffStatsRepository_List_Empty(t *testing.T) {
	database := setupTestDB(t)
	repo := sqlite.NewStaffStatsRepository(database)

	stats, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected no rows, got %d", len(stats))
	}
}
