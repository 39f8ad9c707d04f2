package wallet

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	referencePrefix      = "TX-"
	referenceSuffixLen   = 8
	referenceAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceMaxAttempts = 5
)

// referenceChecker is the slice of the store the generator needs.
type referenceChecker interface {
	ReferenceExists(ctx context.Context, tx pgx.Tx, reference string) (bool, error)
}

// newReference produces a short human-readable transaction reference like
// TX-4K7QP2HM, retrying on the rare collision. It must run inside the
// creating transaction so the reference is still unique at commit.
func newReference(ctx context.Context, tx pgx.Tx, store referenceChecker) (string, error) {
	for attempt := 0; attempt < referenceMaxAttempts; attempt++ {
		suffix, err := randomSuffix(referenceSuffixLen)
		if err != nil {
			return "", err
		}
		ref := referencePrefix + suffix
		exists, err := store.ReferenceExists(ctx, tx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction reference in %d attempts", referenceMaxAttempts)
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = referenceAlphabet[int(b)%len(referenceAlphabet)]
	}
	return string(out), nil
}
