package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for secret commitments. Secrets are high entropy, so the
// OWASP minimum memory setting is enough to make the commitment one-way.
const (
	commitmentTime        uint32 = 2
	commitmentMemory      uint32 = 19 * 1024
	commitmentParallelism uint8  = 1
	commitmentKeyLength   uint32 = 32
)

// Commitment returns a keyed one-way digest of a submitted secret. It lets the
// audit log tell whether the same secret was used twice without storing it.
func Commitment(secret, pepper string) string {
	salt := sha256.Sum256([]byte("mevx-audit:" + pepper))
	key := argon2.IDKey(
		[]byte(strings.TrimSpace(secret)),
		salt[:],
		commitmentTime,
		commitmentMemory,
		commitmentParallelism,
		commitmentKeyLength,
	)
	return hex.EncodeToString(key)
}
