package store

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// IdempotentID derives a stable identifier from the record's natural
// key so that repeated imports and detection runs over the same data
// replace existing rows instead of duplicating them.
func IdempotentID(t time.Time, parts ...string) string {
	sum := sha1.New()
	_, err := sum.Write([]byte(t.UTC().Format(time.RFC3339Nano) + "#"))
	if err != nil {
		panic("problem generating hash")
	}
	for _, p := range parts {
		_, err = sum.Write([]byte(p + "#"))
		if err != nil {
			panic("problem generating hash")
		}
	}
	return hex.EncodeToString(sum.Sum(nil))
}
