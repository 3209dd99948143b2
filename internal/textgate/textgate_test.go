package textgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.True(t, Classify([]byte("hello world\n"), false))
	assert.False(t, Classify([]byte("hello\x00world"), false))
	assert.False(t, Classify([]byte{0xff, 0xfe, 0x00, 0x01}, false))
}

func TestClassifyIgnoreUTF8Error(t *testing.T) {
	invalid := []byte{'a', 0xff, 'b'}
	assert.False(t, Classify(invalid, false))
	assert.True(t, Classify(invalid, true))
}

func TestClassifyNulOutsideWindowIsAccepted(t *testing.T) {
	blob := make([]byte, ScanWindow+10)
	for i := range blob {
		blob[i] = 'a'
	}
	blob[ScanWindow+5] = 0x00
	// NUL is outside the scanned window, so this blob still passes.
	assert.True(t, Classify(blob, false))
}
