package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code, col, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		ColumnName:     col,
		ConstraintName: constraint,
	}
}

func TestDBErrorCodeMappings(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},    // unique violation
		{"23503", ErrorCodeInvalidArgument}, // fk violation -> invalid input
		{"23502", ErrorCodeValidation},      // not null
		{"23514", ErrorCodeValidation},      // check
		{"22001", ErrorCodeInvalidArgument}, // string truncation
		{"22P02", ErrorCodeInvalidArgument}, // invalid text representation
		{"40001", ErrorCodeDB},              // serialization failure (retryable) mapped to DB
		{"40P01", ErrorCodeDB},              // deadlock
		{"55P03", ErrorCodeDB},              // lock not available
		{"25006", ErrorCodeUnavailable},     // read-only
		{"57P03", ErrorCodeUnavailable},     // cannot connect now
		{"XXXXX", ErrorCodeDB},              // default branch
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code, "", ""))
		if !ok {
			t.Fatalf("expected ok for PgError code %s", c.code)
		}
		if got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}

	// Non-pg error path
	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("DBErrorCode should return ok=false for non-pg error")
	}
}

func TestFromPostgresVariants(t *testing.T) {
	// nil passthrough
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
	if FromPostgresf(nil, "x %d", 1) != nil {
		t.Fatalf("FromPostgresf(nil) should be nil")
	}

	// mapped: check codes only (PgError string includes SQLSTATE formatting)
	err := FromPostgres(pg("23505", "", ""), "insert record")
	if CodeOf(err) != ErrorCodeDuplicateKey {
		t.Fatalf("FromPostgres map code = %v", CodeOf(err))
	}
	errf := FromPostgresf(pg("22P02", "", ""), "bad: %s", "window_start")
	if CodeOf(errf) != ErrorCodeInvalidArgument {
		t.Fatalf("FromPostgresf code = %v, want %v", CodeOf(errf), ErrorCodeInvalidArgument)
	}
}

func TestExtractPgError(t *testing.T) {
	src := pg("23505", "", "")
	wrapped := Wrap(fmt.Errorf("outer: %w", src), ErrorCodeDB, "db")

	got, ok := ExtractPgError(wrapped)
	if !ok || got.Code != "23505" {
		t.Fatalf("ExtractPgError failed: %v %v", got, ok)
	}
	if !IsSQLState(wrapped, "23505") {
		t.Fatalf("IsSQLState missed the wrapped code")
	}
	if IsSQLState(stderrs.New("plain"), "23505") {
		t.Fatalf("IsSQLState true for non-pg error")
	}
	if !IsDuplicateKey(wrapped) {
		t.Fatalf("IsDuplicateKey missed")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(pg("40001", "", "")) { // serialization failure
		t.Fatalf("40001 should be retryable")
	}
	if !Retryable(pg("40P01", "", "")) { // deadlock
		t.Fatalf("40P01 should be retryable")
	}
	if !Retryable(pg("55P03", "", "")) { // lock not available
		t.Fatalf("55P03 should be retryable")
	}
	// non-retryable
	if Retryable(pg("23505", "", "")) {
		t.Fatalf("23505 should not be retryable")
	}
	if Retryable(stderrs.New("nope")) {
		t.Fatalf("non-pg error should not be retryable")
	}
	if Retryable(nil) {
		t.Fatalf("nil should not be retryable")
	}

	// local cancellation is never retried here
	if Retryable(context.Canceled) || Retryable(context.DeadlineExceeded) {
		t.Fatalf("context errors should not be retryable")
	}

	// driver text fallback
	if !Retryable(stderrs.New("ERROR: deadlock detected")) {
		t.Fatalf("text fallback should match deadlock")
	}
	if !Retryable(stderrs.New("commit unexpectedly resulted in rollback")) {
		t.Fatalf("text fallback should match commit rollback")
	}
}

func TestHTTPHelper(t *testing.T) {
	// OK branch
	if st, w := HTTP(nil); st != 200 || w != (Wire{}) {
		t.Fatalf("HTTP(nil) mismatch: %d %+v", st, w)
	}
	// Non-nil maps via HTTPStatus + WireFrom
	err := NotFoundf("x")
	st, w := HTTP(err)
	if st != 404 || w.Code != ErrorCodeNotFound {
		t.Fatalf("HTTP(err) mismatch: %d %+v", st, w)
	}
}
