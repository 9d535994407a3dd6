package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const numberAttempts = 3

// FormatOrderNumber renders the human-facing order number for a given day
// and suffix, shaped PREFIX-YYYYMMDD-NNNN.
func FormatOrderNumber(prefix string, day time.Time, suffix int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), suffix)
}

func randomSuffix() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// nextOrderNumber draws random candidates and checks them against existing
// orders, retrying a bounded number of times. A persistent collision streak
// falls through with the last candidate rather than failing the paid order.
func nextOrderNumber(ctx context.Context, repo Repository, prefix string, now time.Time) (string, error) {
	var candidate string
	for i := 0; i < numberAttempts; i++ {
		suffix, err := randomSuffix()
		if err != nil {
			return "", fmt.Errorf("draw order number suffix: %w", err)
		}
		candidate = FormatOrderNumber(prefix, now, suffix)

		exists, err := repo.OrderNumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return candidate, nil
}
