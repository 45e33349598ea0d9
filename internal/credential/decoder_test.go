package credential

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// testSecret returns a 64-byte secret key built from the seed 1..32
func testSecret(t *testing.T) (ed25519.PrivateKey, solana.PublicKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	key := ed25519.NewKeyFromSeed(seed)
	return key, solana.PrivateKey(key).PublicKey()
}

func TestDecodePrivateKeyRoundTrip(t *testing.T) {
	secret, want := testSecret(t)

	encoders := map[Format]func([]byte) (string, error){
		FormatBase58:    EncodeBase58,
		FormatJSONArray: EncodeJSONArray,
		FormatCommaList: EncodeCommaList,
		FormatHex:       EncodeHex,
	}

	for format, encode := range encoders {
		t.Run(string(format), func(t *testing.T) {
			text, err := encode(secret)
			require.NoError(t, err)

			result, err := Decode(text, MethodPrivateKey)
			require.NoError(t, err)
			assert.Equal(t, want, result.PublicKey)
			assert.Equal(t, want.String(), result.Address())
			assert.Equal(t, format, result.Format)
			assert.Equal(t, MethodPrivateKey, result.Method)
		})
	}
}

func TestDecodeBase58Seed(t *testing.T) {
	secret, want := testSecret(t)

	text, err := EncodeBase58(secret.Seed())
	require.NoError(t, err)

	result, err := Decode(text, MethodPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, want, result.PublicKey)
	assert.Equal(t, FormatBase58, result.Format)
}

func TestDecodeTolerantWhitespace(t *testing.T) {
	secret, want := testSecret(t)

	list, err := EncodeCommaList(secret)
	require.NoError(t, err)
	spaced := "  " + strings.ReplaceAll(list, ",", ", ") + "\n"

	result, err := Decode(spaced, MethodPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, want, result.PublicKey)
}

func TestDecodeRejectsMismatchedKeypair(t *testing.T) {
	secret, _ := testSecret(t)
	tampered := make([]byte, len(secret))
	copy(tampered, secret)
	tampered[63] ^= 0xff

	text, err := EncodeHex(tampered)
	require.NoError(t, err)

	_, err = Decode(text, MethodPrivateKey)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, MethodPrivateKey, decodeErr.Method)
}

func TestDecodeInvalidPrivateKeys(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"short base58", "3yZe7d"},
		{"json array too short", "[1,2,3]"},
		{"json array out of range", "[" + strings.Repeat("300,", 63) + "300]"},
		{"comma list with words", "1,2,three"},
		{"hex wrong length", strings.Repeat("ab", 32)},
		{"garbage", "not a key at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.secret, MethodPrivateKey)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Contains(t, err.Error(), "Invalid private key format.")
			assert.Contains(t, err.Error(), "JSON array")
		})
	}
}

func TestDecodeEmptySecret(t *testing.T) {
	_, err := Decode("   ", MethodPrivateKey)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, ErrEmptySecret.Error(), decodeErr.Reason)
}

func TestDecodeUnsupportedMethod(t *testing.T) {
	_, err := Decode("anything", Method("ledger"))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, ErrUnsupportedMethod.Error(), decodeErr.Reason)
}

func TestDecodeRecoveryPhraseWordCount(t *testing.T) {
	for _, phrase := range []string{
		"abandon abandon abandon",
		strings.TrimSpace(strings.Repeat("abandon ", 13)),
	} {
		_, err := Decode(phrase, MethodRecoveryPhrase)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Contains(t, decodeErr.Reason, "12 or 24 words")
	}
}

func TestDecodeRecoveryPhraseBIP44(t *testing.T) {
	first, err := Decode(validMnemonic, MethodRecoveryPhrase)
	require.NoError(t, err)
	assert.Equal(t, FormatMnemonic, first.Format)

	// Extra whitespace and capitalisation do not change the wallet
	second, err := Decode("  "+strings.ToUpper(strings.ReplaceAll(validMnemonic, " ", "   "))+" ", MethodRecoveryPhrase)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestDecodeRecoveryPhraseChecksum(t *testing.T) {
	badChecksum := strings.TrimSpace(strings.Repeat("abandon ", 12))

	_, err := Decode(badChecksum, MethodRecoveryPhrase)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "Invalid recovery phrase format.", decodeErr.Reason)

	// The legacy derivation only checks the word count
	legacy := NewDecoder(WithDerivation(DerivationLegacySHA256))
	result, err := legacy.Decode(badChecksum, MethodRecoveryPhrase)
	require.NoError(t, err)
	assert.False(t, result.PublicKey.IsZero())
}

func TestDerivationsDiverge(t *testing.T) {
	bip44, err := NewDecoder().Decode(validMnemonic, MethodRecoveryPhrase)
	require.NoError(t, err)

	legacy, err := NewDecoder(WithDerivation(DerivationLegacySHA256)).Decode(validMnemonic, MethodRecoveryPhrase)
	require.NoError(t, err)

	assert.NotEqual(t, bip44.PublicKey, legacy.PublicKey)
}

func TestDeriveEd25519SLIP10Vectors(t *testing.T) {
	seed, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)

	child, err := deriveEd25519(seed, "m/0'")
	require.NoError(t, err)
	assert.Equal(t, "68e0fe46dfb67e368c75379acec591dad19df3cde26e63b93a8e704f1dade7a3", hex.EncodeToString(child))

	grandchild, err := deriveEd25519(seed, "m/0'/1'")
	require.NoError(t, err)
	assert.Equal(t, "b1d0bad404bf35da785a64ca1ac54b2617211d2777696fbffaf208f746ae84f2", hex.EncodeToString(grandchild))
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	_, err := EncodeBase58([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrUnsupportedEncoder))
}

func TestCommitment(t *testing.T) {
	a := Commitment("secret-material", "pepper")
	b := Commitment("  secret-material\n", "pepper")
	c := Commitment("secret-material", "other-pepper")

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "secret")
}

func TestParseDerivation(t *testing.T) {
	for name, want := range map[string]Derivation{
		"":              DerivationBIP44,
		"bip44":         DerivationBIP44,
		"BIP44":         DerivationBIP44,
		"legacy-sha256": DerivationLegacySHA256,
		"legacy":        DerivationLegacySHA256,
	} {
		got, err := ParseDerivation(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseDerivation("bip32")
	assert.Error(t, err)
	assert.Equal(t, "legacy-sha256", DerivationLegacySHA256.String())
}
