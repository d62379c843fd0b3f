package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
)

// openTestStore connects to the database named by GEOPULSE_POSTGRES_DSN and
// skips the test when none is configured.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("GEOPULSE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GEOPULSE_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testCode(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

func TestTryConsumeCountsDown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	code := testCode("countdown")

	want := []struct {
		allowed   bool
		remaining int
	}{
		{true, 2}, {true, 1}, {true, 0}, {false, 0},
	}
	for i, w := range want {
		allowed, remaining, err := s.TryConsume(ctx, code, 3)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if allowed != w.allowed || remaining != w.remaining {
			t.Errorf("call %d = (%v, %d), want (%v, %d)", i+1, allowed, remaining, w.allowed, w.remaining)
		}
	}
}

func TestTryConsumeEmptyCodeExempt(t *testing.T) {
	s := openTestStore(t)
	allowed, remaining, err := s.TryConsume(context.Background(), "", 3)
	if err != nil || !allowed || remaining != 3 {
		t.Fatalf("got (%v, %d, %v), want (true, 3, nil)", allowed, remaining, err)
	}
}

func TestTryConsumeNonPositiveLimit(t *testing.T) {
	s := openTestStore(t)
	allowed, remaining, err := s.TryConsume(context.Background(), testCode("zero"), 0)
	if err != nil || allowed || remaining != 0 {
		t.Fatalf("got (%v, %d, %v), want (false, 0, nil)", allowed, remaining, err)
	}
}
