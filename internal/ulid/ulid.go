// Package ulid mints the prefixed identifiers docsync creates locally.
// Document and folder identifiers are assigned by the remote store and never
// generated here.
package ulid

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// PrefixRequest marks ids sent as X-Request-ID
	PrefixRequest = "req"
	// PrefixNotification marks notification keys
	PrefixNotification = "ntf"
	// PrefixUpload marks the key of a persistent upload notification
	PrefixUpload = "up"

	PrefixSeparator = "-"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// ULID wraps ulid.ULID with a prefix
type ULID struct {
	ulid.ULID
	prefix string
}

// GenerateWithPrefix creates a ULID for the current time. Ids minted in the
// same millisecond still sort in creation order.
func GenerateWithPrefix(prefix string) ULID {
	entropyLock.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyLock.Unlock()
	return ULID{ULID: id, prefix: prefix}
}

// Prefix returns the prefix of the ULID
func (u ULID) Prefix() string {
	return u.prefix
}

// String returns "prefix-ulid", or the bare ULID without a prefix
func (u ULID) String() string {
	if u.prefix == "" {
		return u.ULID.String()
	}
	return u.prefix + PrefixSeparator + u.ULID.String()
}

func RequestID() string      { return GenerateWithPrefix(PrefixRequest).String() }
func NotificationID() string { return GenerateWithPrefix(PrefixNotification).String() }
func UploadID() string       { return GenerateWithPrefix(PrefixUpload).String() }
