package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// TransactionPrefix marks entries posted from a bank transaction.
	TransactionPrefix = "TXN-"
	// OpeningPrefix marks synthetic opening-balance entries.
	OpeningPrefix = "OB-"
)

// Kind is the origin of a journal entry as read from its reference.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransaction
	KindOpening
)

// TransactionReference returns the reference for a transaction's posting, e.g. "TXN-42".
func TransactionReference(transactionID string) string {
	return TransactionPrefix + transactionID
}

// OpeningReference returns the reference for a period's opening entry, e.g. "OB-2025-Q1".
func OpeningReference(periodID string) string {
	return OpeningPrefix + periodID
}

// ParseReference splits a reference into its kind and source id.
func ParseReference(ref string) (Kind, string, error) {
	switch {
	case strings.HasPrefix(ref, TransactionPrefix) && len(ref) > len(TransactionPrefix):
		return KindTransaction, ref[len(TransactionPrefix):], nil
	case strings.HasPrefix(ref, OpeningPrefix) && len(ref) > len(OpeningPrefix):
		return KindOpening, ref[len(OpeningPrefix):], nil
	}
	return KindUnknown, "", fmt.Errorf("invalid entry reference: %q", ref)
}

// Source produces identifiers for generated journal entries and lines.
type Source func() string

// UUID is the default Source.
func UUID() string {
	return uuid.NewString()
}

// Sequence returns a deterministic Source yielding prefix-1, prefix-2, ...
func Sequence(prefix string) Source {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
