// Package id issues time-sortable ULID identifiers for alerts and journal rows.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

func New() string {
	return NewAt(time.Now())
}

// NewAt stamps the ID with t, so alerts sort by their own timestamp.
// IDs issued within the same millisecond stay increasing.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t.UTC()), entropy)
	if err != nil {
		// only on monotonic entropy overflow within one millisecond
		return ulid.Make().String()
	}
	return id.String()
}

// Time recovers the millisecond timestamp embedded in an ID.
func Time(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()).UTC(), nil
}
