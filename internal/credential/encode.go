package credential

import (
	"crypto/ed25519"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
)

// EncodeBase58 renders a 32- or 64-byte secret the way wallets export it
func EncodeBase58(secret []byte) (string, error) {
	if err := checkSecretLength(secret); err != nil {
		return "", err
	}
	return base58.Encode(secret), nil
}

// EncodeJSONArray renders a secret as a JSON number array, e.g. [1,2,3]
func EncodeJSONArray(secret []byte) (string, error) {
	if err := checkSecretLength(secret); err != nil {
		return "", err
	}
	return "[" + joinBytes(secret) + "]", nil
}

// EncodeCommaList renders a secret as comma-separated decimals
func EncodeCommaList(secret []byte) (string, error) {
	if err := checkSecretLength(secret); err != nil {
		return "", err
	}
	return joinBytes(secret), nil
}

// EncodeHex renders a secret as lowercase hex
func EncodeHex(secret []byte) (string, error) {
	if err := checkSecretLength(secret); err != nil {
		return "", err
	}
	return hex.EncodeToString(secret), nil
}

func joinBytes(secret []byte) string {
	parts := make([]string, len(secret))
	for i, b := range secret {
		parts[i] = strconv.Itoa(int(b))
	}
	return strings.Join(parts, ",")
}

func checkSecretLength(secret []byte) error {
	if len(secret) != ed25519.SeedSize && len(secret) != ed25519.PrivateKeySize {
		return ErrUnsupportedEncoder
	}
	return nil
}
