package transfer

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const (
	referencePrefix     = "TXN"
	referenceSuffixLen  = 6
	referenceSuffixChar = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// ReferenceGenerator mints the externally visible handle for a transfer attempt.
type ReferenceGenerator func(now time.Time) (string, error)

// NewReferenceId returns "TXN" + epoch millis + 6 random uppercase alphanumerics.
// Uniqueness is finally enforced by the ledger's unique index.
func NewReferenceId(now time.Time) (string, error) {
	suffix := make([]byte, referenceSuffixLen)
	max := big.NewInt(int64(len(referenceSuffixChar)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate reference suffix: %w", err)
		}
		suffix[i] = referenceSuffixChar[n.Int64()]
	}
	return referencePrefix + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix), nil
}
