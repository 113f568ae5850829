package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/service/appointments"
	"queuesmart/backend/internal/store/sqlstore"
	"queuesmart/backend/internal/testutil"
)

// openTestSchema connects to QUEUESMART_TEST_DATABASE_URL with search_path
// pointed at a fresh schema, migrated and seeded.
func openTestSchema(t *testing.T) *bun.DB {
	t.Helper()
	databaseURL := strings.TrimSpace(os.Getenv("QUEUESMART_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("QUEUESMART_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := Open(ctx, databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = Close(admin) })

	schema := "queuesmart_test_" + randomHex(t, 8)
	if _, err := admin.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	u, err := url.Parse(databaseURL)
	if err != nil {
		t.Fatalf("parse database url: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	db, err := Open(ctx, u.String(), PoolConfig{MaxOpenConns: 16, AutoMigrate: true})
	if err != nil {
		t.Fatalf("Open schema error: %v", err)
	}
	// Registered after the admin cleanups so it runs before DROP SCHEMA.
	t.Cleanup(func() { _ = Close(db) })

	testutil.SeedDirectory(t, db)
	return db
}

func TestPostgresIntegration_ConcurrentBookingsOneWinner(t *testing.T) {
	db := openTestSchema(t)
	testutil.AddSlot(t, db, testutil.StaffA, "2030-01-07", "10:00", "10:30")

	svc := appointments.NewService(sqlstore.New(db), nil, slog.New(slog.DiscardHandler))
	admin := domain.Actor{UserID: testutil.AdminID, Role: domain.RoleAdmin}

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < attempts; i++ {
		client := testutil.ClientA
		if i%2 == 1 {
			client = testutil.ClientB
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), admin, appointments.CreateInput{
				ClientID:  client,
				ServiceID: testutil.ServiceCut,
				StaffID:   testutil.StaffA,
				Date:      "2030-01-07",
				Time:      "10:00",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	for _, err := range errs {
		if !errors.Is(err, domain.ErrSlotTaken) {
			t.Fatalf("loser err = %v, want ErrSlotTaken", err)
		}
	}
}

func TestPostgresIntegration_ConcurrentApprovalsGetDistinctNumbers(t *testing.T) {
	db := openTestSchema(t)

	const n = 6
	for i := 0; i < n; i++ {
		start := fmt.Sprintf("%02d:00", 9+i)
		testutil.AddSlot(t, db, testutil.StaffA, "2030-01-07", start, fmt.Sprintf("%02d:30", 9+i))
	}

	svc := appointments.NewService(sqlstore.New(db), nil, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	admin := domain.Actor{UserID: testutil.AdminID, Role: domain.RoleAdmin}
	staff := domain.Actor{UserID: testutil.StaffA, Role: domain.RoleStaff}

	var booked []domain.Appointment
	for i := 0; i < n; i++ {
		client := testutil.ClientA
		if i%2 == 1 {
			client = testutil.ClientB
		}
		appt, err := svc.Create(ctx, admin, appointments.CreateInput{
			ClientID:  client,
			ServiceID: testutil.ServiceCut,
			StaffID:   testutil.StaffA,
			Date:      "2030-01-07",
			Time:      fmt.Sprintf("%02d:00", 9+i),
		})
		if err != nil {
			t.Fatalf("Create #%d error: %v", i, err)
		}
		booked = append(booked, appt)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int
	)
	for _, appt := range booked {
		wg.Add(1)
		go func() {
			defer wg.Done()
			approved, err := svc.Approve(ctx, staff, appt.ID)
			if err != nil {
				t.Errorf("Approve %s error: %v", appt.ID, err)
				return
			}
			mu.Lock()
			numbers = append(numbers, *approved.QueueNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(numbers)
	if len(numbers) != n {
		t.Fatalf("approved = %d, want %d", len(numbers), n)
	}
	for i, got := range numbers {
		if got != i+1 {
			t.Fatalf("queue numbers = %v, want 1..%d", numbers, n)
		}
	}
}

func randomHex(t *testing.T, nBytes int) string {
	t.Helper()
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
