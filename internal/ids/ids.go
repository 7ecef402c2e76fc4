package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// generator mints ULIDs behind a mutex; monotonic entropy is not safe for
// concurrent use.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var gen = generator{
	entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
}

// New mints an identifier for donation records, staff users and audit
// entries. ULIDs sort by creation time, so primary-key order mirrors
// submission order in the reconciliation console.
func New() string {
	gen.mu.Lock()
	defer gen.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), gen.entropy).String()
}
