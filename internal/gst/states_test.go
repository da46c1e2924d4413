package gst

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidGSTIN(t *testing.T) {
	require.True(t, ValidGSTIN("27AAPFU0939F1ZV"))
	require.True(t, ValidGSTIN("29AABCU9603R1ZM"))

	require.False(t, ValidGSTIN(""))
	require.False(t, ValidGSTIN("27AAPFU0939F1Z"))    // 14 chars
	require.False(t, ValidGSTIN("27AAPFU0939F1ZVX"))  // 16 chars
	require.False(t, ValidGSTIN("27aapfu0939f1zv"))   // lowercase
	require.False(t, ValidGSTIN("27AAPFU0939F0ZV"))   // entity digit 0
	require.False(t, ValidGSTIN("27AAPFU0939F1AV"))   // missing Z
}

func TestStateFromGSTIN(t *testing.T) {
	code, ok := StateFromGSTIN("27AAPFU0939F1ZV")
	require.True(t, ok)
	require.Equal(t, "27", code)

	// 25 and 28 were reassigned and must resolve to no mapping.
	_, ok = StateFromGSTIN("25AAPFU0939F1ZV")
	require.False(t, ok)
	_, ok = StateFromGSTIN("28AAPFU0939F1ZV")
	require.False(t, ok)
}

func TestStateRegistryGaps(t *testing.T) {
	_, ok := StateName("25")
	require.False(t, ok)
	_, ok = StateName("28")
	require.False(t, ok)

	for i := 1; i <= 38; i++ {
		code := fmt.Sprintf("%02d", i)
		if code == "25" || code == "28" {
			continue
		}
		_, ok := StateName(code)
		require.True(t, ok, "missing state code %s", code)
	}
}
