package quota

import (
	"context"
	"testing"
)

func TestUnlimitedAlwaysAllows(t *testing.T) {
	var s Store = Unlimited{}
	for i := 0; i < 100; i++ {
		allowed, remaining, err := s.TryConsume(context.Background(), "any-code", 3)
		if err != nil || !allowed || remaining != 3 {
			t.Fatalf("call %d = (%v, %d, %v)", i+1, allowed, remaining, err)
		}
	}
}
