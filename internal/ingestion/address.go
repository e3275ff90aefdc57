package ingestion

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned for strings that are not Solana public keys.
var ErrInvalidAddress = errors.New("invalid solana address")

const pubkeyLen = 32

// ValidateAddress checks that addr is a base58 32-byte public key.
// With requireOnCurve the key must also be a valid ed25519 point: transaction
// signers hold private keys, so program derived addresses cannot appear there.
func ValidateAddress(addr string, requireOnCurve bool) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAddress, addr, err)
	}
	if len(decoded) != pubkeyLen {
		return fmt.Errorf("%w: %s: %d bytes", ErrInvalidAddress, addr, len(decoded))
	}
	if requireOnCurve && !isOnCurve(decoded) {
		return fmt.Errorf("%w: %s: off curve", ErrInvalidAddress, addr)
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
