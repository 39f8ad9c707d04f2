package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakeRefChecker struct {
	existing map[string]bool
	calls    int
}

func (f *fakeRefChecker) ReferenceExists(_ context.Context, _ pgx.Tx, ref string) (bool, error) {
	f.calls++
	return f.existing[ref], nil
}

func TestNewReferenceFormat(t *testing.T) {
	checker := &fakeRefChecker{}
	ref, err := newReference(context.Background(), nil, checker)
	if err != nil {
		t.Fatalf("newReference: %v", err)
	}
	if !strings.HasPrefix(ref, "TX-") {
		t.Errorf("reference %q should start with TX-", ref)
	}
	if len(ref) != len("TX-")+referenceSuffixLen {
		t.Errorf("reference %q: got length %d, want %d", ref, len(ref), len("TX-")+referenceSuffixLen)
	}
	for _, c := range ref[3:] {
		if !strings.ContainsRune(referenceAlphabet, c) {
			t.Errorf("reference %q contains %q outside the allowed alphabet", ref, c)
		}
	}
}

func TestNewReferenceUniqueAcrossCalls(t *testing.T) {
	checker := &fakeRefChecker{existing: map[string]bool{}}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref, err := newReference(context.Background(), nil, checker)
		if err != nil {
			t.Fatalf("newReference: %v", err)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
		checker.existing[ref] = true
	}
}

type alwaysCollides struct{ calls int }

func (a *alwaysCollides) ReferenceExists(_ context.Context, _ pgx.Tx, _ string) (bool, error) {
	a.calls++
	return true, nil
}

func TestNewReferenceGivesUpAfterRetries(t *testing.T) {
	checker := &alwaysCollides{}
	_, err := newReference(context.Background(), nil, checker)
	if err == nil {
		t.Fatal("expected an error when every candidate collides")
	}
	if checker.calls != referenceMaxAttempts {
		t.Errorf("attempts: got %d, want %d", checker.calls, referenceMaxAttempts)
	}
}
