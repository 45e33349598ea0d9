package credential

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip39"
)

// Method is the way the user supplies wallet credentials
type Method string

const (
	MethodPrivateKey     Method = "private-key"
	MethodRecoveryPhrase Method = "recovery-phrase"
)

// Format is the textual encoding a secret was recognised as
type Format string

const (
	FormatBase58    Format = "base58"
	FormatJSONArray Format = "json-array"
	FormatCommaList Format = "comma-list"
	FormatHex       Format = "hex"
	FormatMnemonic  Format = "mnemonic"
)

// Derivation selects how a recovery phrase becomes a keypair
type Derivation int

const (
	// DerivationBIP44 validates the phrase against the BIP-39 wordlist and
	// derives m/44'/501'/0'/0', the path used by Phantom and Solflare.
	DerivationBIP44 Derivation = iota
	// DerivationLegacySHA256 seeds the keypair with SHA-256 of the phrase text.
	// Only the word count is checked. Kept for accounts created that way.
	DerivationLegacySHA256
)

func (d Derivation) String() string {
	switch d {
	case DerivationBIP44:
		return "bip44"
	case DerivationLegacySHA256:
		return "legacy-sha256"
	default:
		return "unknown"
	}
}

// ParseDerivation maps "bip44" or "legacy-sha256" to a Derivation
func ParseDerivation(name string) (Derivation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "bip44":
		return DerivationBIP44, nil
	case "legacy-sha256", "legacy":
		return DerivationLegacySHA256, nil
	default:
		return 0, fmt.Errorf("unknown derivation %q", name)
	}
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

// Result is the outcome of a successful decode
type Result struct {
	PublicKey solana.PublicKey
	Method    Method
	Format    Format
}

// Address returns the base58 wallet address
func (r Result) Address() string {
	return r.PublicKey.String()
}

// Decoder turns user-supplied secrets into wallet public keys. It holds no
// state besides its options and is safe for concurrent use.
type Decoder struct {
	derivation Derivation
}

// Option configures a Decoder
type Option func(*Decoder)

// WithDerivation sets the recovery phrase derivation
func WithDerivation(d Derivation) Option {
	return func(dec *Decoder) {
		dec.derivation = d
	}
}

// NewDecoder creates a decoder using BIP-44 derivation unless overridden
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{derivation: DerivationBIP44}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// Decode decodes secret with the default decoder
func Decode(secret string, method Method) (Result, error) {
	return defaultDecoder.Decode(secret, method)
}

// Decode parses secret according to method and returns the wallet public key
func (d *Decoder) Decode(secret string, method Method) (Result, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return Result{}, &DecodeError{Method: method, Reason: ErrEmptySecret.Error()}
	}

	switch method {
	case MethodPrivateKey:
		key, format, ok := parsePrivateKey(trimmed)
		if !ok {
			return Result{}, &DecodeError{
				Method: method,
				Reason: "Invalid private key format.",
				Hint:   privateKeyFormatHint,
			}
		}
		return Result{PublicKey: key.PublicKey(), Method: method, Format: format}, nil
	case MethodRecoveryPhrase:
		key, err := d.keyFromPhrase(trimmed)
		if err != nil {
			return Result{}, err
		}
		return Result{PublicKey: key.PublicKey(), Method: method, Format: FormatMnemonic}, nil
	default:
		return Result{}, &DecodeError{Method: method, Reason: ErrUnsupportedMethod.Error()}
	}
}

func (d *Decoder) keyFromPhrase(phrase string) (solana.PrivateKey, error) {
	words := strings.Fields(phrase)
	if len(words) != 12 && len(words) != 24 {
		return nil, &DecodeError{
			Method: MethodRecoveryPhrase,
			Reason: "Invalid recovery phrase. Please enter 12 or 24 words separated by spaces.",
		}
	}

	if d.derivation == DerivationLegacySHA256 {
		seed := sha256.Sum256([]byte(phrase))
		return keyFromSeed(seed[:]), nil
	}

	mnemonic := strings.ToLower(strings.Join(words, " "))
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, &DecodeError{
			Method: MethodRecoveryPhrase,
			Reason: "Invalid recovery phrase format.",
			Hint:   "Check the spelling and order of every word.",
		}
	}

	derived, err := deriveEd25519(bip39.NewSeed(mnemonic, ""), solanaPath)
	if err != nil {
		return nil, err
	}
	return keyFromSeed(derived), nil
}

// parsePrivateKey tries each supported encoding in order; the first that
// yields a structurally valid keypair wins
func parsePrivateKey(s string) (solana.PrivateKey, Format, bool) {
	if len(s) > 40 && isBase58(s) {
		if raw, err := base58.Decode(s); err == nil {
			switch len(raw) {
			case ed25519.PrivateKeySize:
				if key, ok := keyFromSecret(raw); ok {
					return key, FormatBase58, true
				}
			case ed25519.SeedSize:
				return keyFromSeed(raw), FormatBase58, true
			}
		}
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		var nums []int
		if err := json.Unmarshal([]byte(s), &nums); err == nil {
			if raw, ok := bytesFromInts(nums); ok {
				if key, ok := keyFromSecret(raw); ok {
					return key, FormatJSONArray, true
				}
			}
		}
	}

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		nums := make([]int, 0, len(parts))
		valid := true
		for _, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				valid = false
				break
			}
			nums = append(nums, n)
		}
		if valid {
			if raw, ok := bytesFromInts(nums); ok {
				if key, ok := keyFromSecret(raw); ok {
					return key, FormatCommaList, true
				}
			}
		}
	}

	if len(s) == 2*ed25519.PrivateKeySize && hexPattern.MatchString(s) {
		if raw, err := hex.DecodeString(s); err == nil {
			if key, ok := keyFromSecret(raw); ok {
				return key, FormatHex, true
			}
		}
	}

	return nil, "", false
}

// keyFromSecret accepts a 64-byte secret key whose public half matches its seed
func keyFromSecret(raw []byte) (solana.PrivateKey, bool) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, false
	}
	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, false
	}
	return solana.PrivateKey(derived), true
}

func keyFromSeed(seed []byte) solana.PrivateKey {
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]))
}

// bytesFromInts requires exactly 64 values in the byte range
func bytesFromInts(nums []int) ([]byte, bool) {
	if len(nums) != ed25519.PrivateKeySize {
		return nil, false
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		if n < 0 || n > 255 {
			return nil, false
		}
		out[i] = byte(n)
	}
	return out, true
}

func isBase58(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
