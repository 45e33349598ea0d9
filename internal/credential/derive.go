package credential

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/pkg/hdwallet"
)

// solanaPath is the first account of the Solana coin type
const solanaPath = "m/44'/501'/0'/0'"

// deriveEd25519 walks a fully hardened SLIP-0010 ed25519 path from a BIP-39
// seed and returns the 32-byte private seed at the leaf
func deriveEd25519(seed []byte, path string) ([]byte, error) {
	key, err := hdwallet.Derived(path, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s: %w", path, err)
	}
	return key.PrivateKey, nil
}
