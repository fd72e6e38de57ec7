package tonaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	rawAddress      = "0:83dfd552e63729b472fcbcc8c45ebcc6691702558ed4b4b53e12f6a01e7d5152"
	friendlyAddress = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(""))
	assert.Equal(t, friendlyAddress, Format(friendlyAddress))
	assert.Equal(t, friendlyAddress, Format(rawAddress))

	// display helper, unparseable input passes through untouched
	assert.Equal(t, "not-an-address", Format("not-an-address"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("", 6, 4))
	assert.Equal(t, "EQCD39...B2N", Truncate(friendlyAddress, 6, 3))

	// already short enough to show whole
	assert.Equal(t, "EQabc", Truncate("EQabc", 4, 4))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(rawAddress))
	assert.True(t, IsValid(friendlyAddress))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("xyz"))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(rawAddress, friendlyAddress))
	assert.True(t, Equal(friendlyAddress, friendlyAddress))
	assert.False(t, Equal(rawAddress, "0:0000000000000000000000000000000000000000000000000000000000000000"))

	// unparseable falls back to string comparison
	assert.True(t, Equal("foo", "foo"))
	assert.False(t, Equal("foo", "bar"))
}
