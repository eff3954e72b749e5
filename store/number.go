package store

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

const (
	submissionNumberLength  = 6
	submissionNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// The remote system only requires submission numbers to be unique among
	// submissions received in the last 30 days.
	uniquenessWindow = 30 * 24 * time.Hour

	// 36^6 candidates make a collision on even the first draw vanishingly
	// unlikely; the cap exists so pathological duplicate clustering turns
	// into a hard error instead of a spin.
	maxNumberAttempts = 1000
)

// NumberSource is the durable uniqueness check the allocator draws against.
// Satisfied by Store.
type NumberSource interface {
	CountRecentSubmissionNumber(ctx context.Context, number string, since time.Time) (int64, error)
}

// GenerateSubmissionNumber draws 6-character uppercase-alphanumeric
// candidates until one is unused within the uniqueness window. Cross-process
// races are accepted: the recheck, not a lock, is what resolves them.
func GenerateSubmissionNumber(ctx context.Context, src NumberSource, rng *rand.Rand) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := randomNumber(rng)
		since := time.Now().Add(-uniquenessWindow)
		n, err := src.CountRecentSubmissionNumber(ctx, candidate, since)
		if err != nil {
			return "", errors.Wrap(err, "checking submission number")
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", errors.Errorf("no unused submission number after %d attempts", maxNumberAttempts)
}

func randomNumber(rng *rand.Rand) string {
	b := make([]byte, submissionNumberLength)
	for i := range b {
		b[i] = submissionNumberCharset[rng.Intn(len(submissionNumberCharset))]
	}
	return string(b)
}
