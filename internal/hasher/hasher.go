package hasher

import (
	"context"
	"crypto/sha1" //nolint:gosec // content identity, not a security boundary
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
	"time"

	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/metrics"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names a supported digest.
type Algorithm string

const (
	// SHA1 produces 40 hex characters and matches catalogs built by earlier
	// releases.
	SHA1 Algorithm = "sha1"
	// BLAKE2b produces 64 hex characters (BLAKE2b-256).
	BLAKE2b Algorithm = "blake2b"
)

// DefaultBlockSize is the read buffer used when streaming files.
const DefaultBlockSize = 64 * 1024

// Hasher computes content fingerprints by streaming files through a digest
// in fixed-size blocks. It is safe for concurrent use.
type Hasher struct {
	algorithm Algorithm
	blockSize int
	newHash   func() hash.Hash
	retry     filesystem.RetryConfig
}

// New returns a Hasher for the named algorithm. A blockSize <= 0 selects
// DefaultBlockSize.
func New(algorithm Algorithm, blockSize int) (*Hasher, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	h := &Hasher{
		algorithm: Algorithm(strings.ToLower(string(algorithm))),
		blockSize: blockSize,
		retry:     filesystem.DefaultRetryConfig(),
	}

	switch h.algorithm {
	case SHA1, "":
		h.algorithm = SHA1
		h.newHash = sha1.New
	case BLAKE2b:
		h.newHash = func() hash.Hash {
			d, _ := blake2b.New256(nil) // only fails for oversized keys
			return d
		}
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}

	return h, nil
}

// Algorithm returns the digest in use.
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Fingerprint returns the hex digest of the file at path. Any I/O failure
// (permission denied, file removed mid-read, cancellation) returns an empty
// fingerprint and the error; callers skip the file for this pass.
func (h *Hasher) Fingerprint(ctx context.Context, path string) (string, error) {
	start := time.Now()

	f, err := filesystem.OpenWithRetry(path, h.retry)
	if err != nil {
		metrics.HashFailuresTotal.Inc()
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sum, n, err := h.digest(ctx, f)
	metrics.HashBytesTotal.Add(float64(n))
	if err != nil {
		metrics.HashFailuresTotal.Inc()
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	metrics.HashDuration.Observe(time.Since(start).Seconds())
	return sum, nil
}

// FingerprintReader digests everything readable from r.
func (h *Hasher) FingerprintReader(ctx context.Context, r io.Reader) (string, error) {
	sum, _, err := h.digest(ctx, r)
	return sum, err
}

func (h *Hasher) digest(ctx context.Context, r io.Reader) (string, int64, error) {
	d := h.newHash()
	buf := make([]byte, h.blockSize)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return "", total, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			d.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", total, err
		}
	}

	return hex.EncodeToString(d.Sum(nil)), total, nil
}
