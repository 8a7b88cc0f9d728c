package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get pool: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped sql.ErrNoRows to be not found")
	}
	if isNotFound(errors.New("connection refused")) {
		t.Fatalf("expected unrelated error to be ignored")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Run("matches unique violation code", func(t *testing.T) {
		err := fmt.Errorf("insert forecast: %w", &pq.Error{Code: "23505"})
		if !isUniqueViolation(err) {
			t.Fatalf("expected true for unique violation")
		}
	})

	t.Run("ignores other pq errors", func(t *testing.T) {
		if isUniqueViolation(&pq.Error{Code: "23503"}) {
			t.Fatalf("expected false for foreign key violation")
		}
	})

	t.Run("ignores plain errors", func(t *testing.T) {
		if isUniqueViolation(errors.New("boom")) {
			t.Fatalf("expected false for plain error")
		}
	})
}

func TestNullableConversions(t *testing.T) {
	if got := nullInt64ToIntPtr(sql.NullInt64{}); got != nil {
		t.Fatalf("expected nil for null int, got %d", *got)
	}
	if got := nullInt64ToIntPtr(sql.NullInt64{Int64: 3, Valid: true}); got == nil || *got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}

	zero := 0
	if got := intPtrToNullInt64(&zero); !got.Valid || got.Int64 != 0 {
		t.Fatalf("zero goals must stay valid, got %+v", got)
	}
	if got := intPtrToNullInt64(nil); got.Valid {
		t.Fatalf("expected null for nil pointer")
	}

	at := time.Date(2026, 6, 11, 19, 0, 0, 0, time.FixedZone("CST", -6*3600))
	if got := nullTimeToPtr(timePtrToNullTime(&at)); got == nil || !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("unexpected round trip: %v", got)
	}
	if got := nullTimeToPtr(sql.NullTime{}); got != nil {
		t.Fatalf("expected nil for null time")
	}
}
