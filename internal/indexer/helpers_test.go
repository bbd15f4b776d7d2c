package indexer

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // fingerprints under test
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"genai-gallery/internal/database"
)

// graph is a minimal node graph with two seed inputs.
const graph = `{"3":{"inputs":{"seed":42,"steps":20,"type":"INT","model":["4",0]},"class_type":"KSampler"},` +
	`"6":{"inputs":{"text":"a red fox in the snow"},"class_type":"CLIPTextEncode"}}`

type testEnv struct {
	root   string
	db     *database.Database
	dbPath string
	rec    *Reconciler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dbPath := filepath.Join(t.TempDir(), "gallery.db")
	db, err := database.New(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	root := t.TempDir()
	rec, err := NewReconciler(db, Config{Root: root, Walker: WalkerConfig{Workers: 2, SkipHidden: true}})
	require.NoError(t, err)

	return &testEnv{root: root, db: db, dbPath: dbPath, rec: rec}
}

func (e *testEnv) run(t *testing.T) Result {
	t.Helper()
	res, err := e.rec.Run(context.Background())
	require.NoError(t, err)
	return res
}

// write creates rel under the root with a fixed modification time.
func (e *testEnv) write(t *testing.T, rel string, data []byte, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(e.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func (e *testEnv) rename(t *testing.T, from, to string) {
	t.Helper()
	dst := filepath.Join(e.root, filepath.FromSlash(to))
	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
	require.NoError(t, os.Rename(filepath.Join(e.root, filepath.FromSlash(from)), dst))
}

func (e *testEnv) entry(t *testing.T, hash string) *database.Entry {
	t.Helper()
	entry, err := e.db.GetEntry(context.Background(), hash)
	require.NoError(t, err)
	return entry
}

// raw opens a second connection to the catalog for direct inspection.
func (e *testEnv) raw(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", e.dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// snapshot dumps every catalog row in a stable order.
func (e *testEnv) snapshot(t *testing.T) []string {
	t.Helper()
	conn := e.raw(t)
	var out []string
	for _, q := range []string{
		`SELECT hash || '|' || path || '|' || IFNULL(prompt, '') || '|' || created_at || '|' || metadata_version FROM images ORDER BY hash`,
		`SELECT id || '|' || image_hash || '|' || key || '|' || value FROM image_metadata ORDER BY id`,
		`SELECT rowid || '|' || image_hash || '|' || content FROM search_index ORDER BY rowid`,
	} {
		rows, err := conn.Query(q)
		require.NoError(t, err)
		for rows.Next() {
			var s string
			require.NoError(t, rows.Scan(&s))
			out = append(out, s)
		}
		require.NoError(t, rows.Err())
		rows.Close()
	}
	return out
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.raw(t).QueryRow(query, args...).Scan(&n))
	return n
}

func (e *testEnv) search(t *testing.T, phrase string) []string {
	t.Helper()
	hashes, err := e.db.MatchFullText(context.Background(), phrase)
	require.NoError(t, err)
	return hashes
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data) //nolint:gosec // fingerprints under test
	return hex.EncodeToString(sum[:])
}

// makePNG encodes a 2x2 image whose first pixel is shade and, when prompt
// is non-empty, embeds it as a "prompt" tEXt chunk.
func makePNG(t *testing.T, shade uint8, prompt string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: shade, G: 10, B: 20, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	raw := buf.Bytes()
	if prompt == "" {
		return raw
	}

	// signature (8) + IHDR chunk (4+4+13+4)
	const afterIHDR = 8 + 25
	data := []byte("prompt\x00" + prompt)

	var c bytes.Buffer
	_ = binary.Write(&c, binary.BigEndian, uint32(len(data)))
	c.WriteString("tEXt")
	c.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte("tEXt"))
	crc.Write(data)
	_ = binary.Write(&c, binary.BigEndian, crc.Sum32())

	out := append([]byte{}, raw[:afterIHDR]...)
	out = append(out, c.Bytes()...)
	return append(out, raw[afterIHDR:]...)
}

var (
	t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)
