package donation

import (
	"fmt"
	mathrand "math/rand"
	"regexp"
	"sync"
	"time"
)

var (
	receiptRandMu sync.Mutex
	receiptRand   = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	receiptNoPattern = regexp.MustCompile(`^R\d{6}-\d{4}$`)
)

// NewReceiptNo mints a human-readable receipt number stamped with the year
// and month of the verification moment, e.g. R202507-1234. The 4-digit
// suffix is random, not a sequence, so two verifications in the same month
// can collide and uniqueness is best-effort. The Postgres schema
// carries a unique index so a collision surfaces as a storage error instead
// of a silent duplicate.
func NewReceiptNo(at time.Time) string {
	receiptRandMu.Lock()
	n := receiptRand.Intn(10000)
	receiptRandMu.Unlock()
	return fmt.Sprintf("R%s-%04d", at.Format("200601"), n)
}

// ValidReceiptNo reports whether s matches the R{YYYY}{MM}-{4 digits} shape.
func ValidReceiptNo(s string) bool {
	return receiptNoPattern.MatchString(s)
}
