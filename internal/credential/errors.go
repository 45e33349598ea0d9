package credential

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySecret        = errors.New("secret is required")
	ErrUnsupportedMethod  = errors.New("unsupported connection method")
	ErrUnsupportedEncoder = errors.New("secret must be 32 or 64 bytes")
)

const privateKeyFormatHint = `Supported formats:
• Base58 string (64-byte secret key or 32-byte seed)
• JSON array: [1,2,3,...] (64 numbers)
• Comma-separated: 1,2,3,... (64 numbers)
• Hex string (128 characters)`

// DecodeError reports secret material that could not be turned into a keypair.
// The message is meant to be shown to the user verbatim.
type DecodeError struct {
	Method Method
	Reason string
	Hint   string
}

func (e *DecodeError) Error() string {
	if e.Hint == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s\n%s", e.Reason, e.Hint)
}
