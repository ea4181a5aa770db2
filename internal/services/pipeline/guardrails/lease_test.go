package guardrails

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"slipway/internal/modkit"
	"slipway/internal/platform/store"
)

// leaseStore fakes the pipeline_record_leases table with a map
type leaseStore struct {
	mu       sync.Mutex
	held     map[string]bool
	claims   int
	releases int
}

func newLeaseStore() *leaseStore { return &leaseStore{held: map[string]bool{}} }

func (s *leaseStore) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return fn(s)
}

func (s *leaseStore) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	if strings.Contains(sql, "delete") {
		s.mu.Lock()
		delete(s.held, args[0].(string))
		s.releases++
		s.mu.Unlock()
	}
	return leaseTag{}, nil
}

func (s *leaseStore) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	if !strings.Contains(sql, "insert") {
		return &leaseRows{}, nil
	}
	id := args[0].(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
	if s.held[id] {
		return &leaseRows{}, nil
	}
	s.held[id] = true
	return &leaseRows{rows: 1}, nil
}

func (s *leaseStore) QueryRow(context.Context, string, ...any) store.Row { return nil }

type leaseTag struct{}

func (leaseTag) String() string      { return "" }
func (leaseTag) RowsAffected() int64 { return 1 }

type leaseRows struct {
	rows int
	i    int
}

func (r *leaseRows) Next() bool {
	r.i++
	return r.i <= r.rows
}
func (r *leaseRows) Scan(...any) error { return nil }
func (r *leaseRows) Err() error        { return nil }
func (r *leaseRows) Close()            {}
func (r *leaseRows) Columns() []string { return nil }

func TestLeaseReleasedAfterWork(t *testing.T) {
	ls := newLeaseStore()
	lease := MakeRecordLease(modkit.Deps{PG: ls})

	ran := 0
	do := func(context.Context) error { ran++; return nil }

	if err := lease(context.Background(), "p1", do); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(ls.held) != 0 {
		t.Fatalf("lease still held after work returned: %v", ls.held)
	}

	// a requeued record must be claimable on the next cycle
	if err := lease(context.Background(), "p1", do); err != nil {
		t.Fatalf("reclaim after release: %v", err)
	}
	if ran != 2 {
		t.Fatalf("work ran %d times, want 2", ran)
	}
	if ls.releases != 2 {
		t.Fatalf("releases = %d, want 2", ls.releases)
	}
}

func TestLeaseReleasedAfterFailure(t *testing.T) {
	ls := newLeaseStore()
	lease := MakeRecordLease(modkit.Deps{PG: ls})

	boom := errors.New("export failed")
	err := lease(context.Background(), "p1", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected work error back, got %v", err)
	}
	if len(ls.held) != 0 {
		t.Fatalf("lease must be released when work fails: %v", ls.held)
	}

	ran := false
	if err := lease(context.Background(), "p1", func(context.Context) error { ran = true; return nil }); err != nil {
		t.Fatalf("reclaim after failed work: %v", err)
	}
	if !ran {
		t.Fatal("second claim should run the work")
	}
}

func TestLeaseHeldIsCleanSkipAndNotReleased(t *testing.T) {
	ls := newLeaseStore()
	ls.held["p1"] = true
	lease := MakeRecordLease(modkit.Deps{PG: ls})

	err := lease(context.Background(), "p1", func(context.Context) error {
		t.Fatal("work must not run when the lease is held")
		return nil
	})
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("expected ErrLeaseHeld, got %v", err)
	}

	// the loser must not release the winner's lease
	if !ls.held["p1"] || ls.releases != 0 {
		t.Fatalf("losing claim disturbed the lease: held=%v releases=%d", ls.held, ls.releases)
	}
}
