package hasher

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		algorithm Algorithm
		want      Algorithm
		wantErr   bool
	}{
		{"", SHA1, false},
		{"sha1", SHA1, false},
		{"SHA1", SHA1, false},
		{"blake2b", BLAKE2b, false},
		{"md5", "", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			h, err := New(tt.algorithm, 0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Algorithm())
			assert.Equal(t, DefaultBlockSize, h.blockSize)
		})
	}
}

func TestFingerprintMatchesDigest(t *testing.T) {
	// Larger than several blocks so the streaming loop runs more than once.
	data := bytes.Repeat([]byte("0123456789abcdef"), 10_000)
	path := writeFile(t, t.TempDir(), "video.mp4", data)

	sha, err := New(SHA1, 4096)
	require.NoError(t, err)
	got, err := sha.Fingerprint(context.Background(), path)
	require.NoError(t, err)
	want := sha1.Sum(data) //nolint:gosec
	assert.Equal(t, hex.EncodeToString(want[:]), got)
	assert.Len(t, got, 40)

	b2, err := New(BLAKE2b, 4096)
	require.NoError(t, err)
	got, err = b2.Fingerprint(context.Background(), path)
	require.NoError(t, err)
	wantB2 := blake2b.Sum256(data)
	assert.Equal(t, hex.EncodeToString(wantB2[:]), got)
	assert.Len(t, got, 64)
}

func TestFingerprintIgnoresNameAndModTime(t *testing.T) {
	dir := t.TempDir()
	data := []byte("same bytes")
	a := writeFile(t, dir, "a.png", data)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	b := writeFile(t, dir, filepath.Join("nested", "renamed.png"), data)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(b, past, past))

	h, err := New(SHA1, 0)
	require.NoError(t, err)

	fa, err := h.Fingerprint(context.Background(), a)
	require.NoError(t, err)
	fb, err := h.Fingerprint(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	c := writeFile(t, dir, "c.png", []byte("other bytes"))
	fc, err := h.Fingerprint(context.Background(), c)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fc)
}

func TestFingerprintEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.png", nil)

	h, err := New(SHA1, 0)
	require.NoError(t, err)
	got, err := h.Fingerprint(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", got)
}

func TestFingerprintMissingFile(t *testing.T) {
	h, err := New(SHA1, 0)
	require.NoError(t, err)

	got, err := h.Fingerprint(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestFingerprintUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}
	path := writeFile(t, t.TempDir(), "locked.png", []byte("secret"))
	require.NoError(t, os.Chmod(path, 0o000))

	h, err := New(SHA1, 0)
	require.NoError(t, err)
	got, err := h.Fingerprint(context.Background(), path)
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestFingerprintCancelled(t *testing.T) {
	h, err := New(SHA1, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := h.FingerprintReader(ctx, strings.NewReader("abc"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}
