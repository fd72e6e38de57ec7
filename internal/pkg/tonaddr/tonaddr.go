package tonaddr

import (
	"fmt"
	"strings"

	"github.com/tonkeeper/tongo"
)

// Format normalizes a TON address for display. Addresses already in the
// user-friendly EQ/UQ form pass through unchanged; raw "workchain:hex"
// addresses are re-encoded through tongo. Anything unparseable is returned
// as typed, this is a display helper and must not invent failures.
func Format(address string) string {
	if address == "" {
		return ""
	}

	if strings.HasPrefix(address, "EQ") || strings.HasPrefix(address, "UQ") {
		return address
	}

	parsed, err := tongo.ParseAddress(address)
	if err != nil {
		return address
	}

	return parsed.ID.ToHuman(true, false)
}

// Truncate shortens an address for display: first startChars, ellipsis,
// last endChars. Addresses short enough to show whole are left alone.
func Truncate(address string, startChars, endChars int) string {
	if address == "" {
		return ""
	}

	if len(address) <= startChars+endChars+3 {
		return address
	}

	return fmt.Sprintf("%s...%s", address[:startChars], address[len(address)-endChars:])
}

func IsValid(address string) bool {
	if address == "" {
		return false
	}

	_, err := tongo.ParseAddress(address)
	return err == nil
}

// Equal compares two addresses in any accepted encoding. Raw and
// user-friendly forms of the same account compare equal.
func Equal(a, b string) bool {
	pa, errA := tongo.ParseAddress(a)
	pb, errB := tongo.ParseAddress(b)
	if errA != nil || errB != nil {
		return a == b
	}

	return pa.ID == pb.ID
}
