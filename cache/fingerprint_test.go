package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	build := func() Key {
		fp := NewFingerprint()
		fp.WriteString("myapp-1.0")
		fp.WriteString("bin")
		_, err := fp.Write([]byte("binary content"))
		require.NoError(t, err)
		return fp.Key()
	}

	assert.Equal(t, build(), build())
}

func TestFingerprintContentSensitivity(t *testing.T) {
	t.Parallel()

	key := func(content string) Key {
		fp := NewFingerprint()
		fp.WriteString("bin")
		fp.Write([]byte(content))
		return fp.Key()
	}

	assert.NotEqual(t, key("content"), key("Content"), "one changed byte must change the key")
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	t.Parallel()

	a := NewFingerprint()
	a.WriteString("ab")
	a.WriteString("c")

	b := NewFingerprint()
	b.WriteString("a")
	b.WriteString("bc")

	assert.NotEqual(t, a.Key(), b.Key(), "adjacent fields must not alias")
}

func TestFingerprintUint64(t *testing.T) {
	t.Parallel()

	a := NewFingerprint()
	a.WriteUint64(6)

	b := NewFingerprint()
	b.WriteUint64(9)

	assert.NotEqual(t, a.Key(), b.Key())
}
