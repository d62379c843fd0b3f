// Package quota meters audit consumption per access code.
package quota

import "context"

// Store tracks usage per access code. Implementations must make TryConsume
// atomic: concurrent calls for the same code never over-consume.
type Store interface {
	// TryConsume records one use of the code if the limit allows it.
	// It returns whether the use was granted and how many uses remain.
	// An empty code is exempt from metering and always allowed.
	TryConsume(ctx context.Context, code string, limit int) (allowed bool, remaining int, err error)
}

// Unlimited is a Store that never denies. It backs deployments with no
// access-code database configured.
type Unlimited struct{}

func (Unlimited) TryConsume(_ context.Context, _ string, limit int) (bool, int, error) {
	return true, limit, nil
}

var _ Store = Unlimited{}
