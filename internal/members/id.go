package members

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"time"
)

// NewID returns an opaque member identifier: the first 20 hex characters of
// a SHA-256 hash over a timestamp plus a random seed. Unlike post and
// transaction ids these carry no ordering; collision probability is
// negligible.
func NewID() string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	seed := strconv.FormatInt(time.Now().UnixMilli(), 36) +
		"-" +
		strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 36)
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:20]
}
