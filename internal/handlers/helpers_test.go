package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"genai-gallery/internal/database"
	"genai-gallery/internal/indexer"
	"genai-gallery/internal/media"
	"genai-gallery/internal/mediatypes"
	"genai-gallery/internal/startup"
)

const graph = `{"3":{"inputs":{"seed":42,"steps":20,"type":"INT","model":["4",0]},"class_type":"KSampler"},` +
	`"6":{"inputs":{"text":"a red fox in the snow"},"class_type":"CLIPTextEncode"}}`

var (
	t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
)

type testServer struct {
	root   string
	db     *database.Database
	coord  *indexer.Coordinator
	h      *Handlers
	router *mux.Router
}

func setupServer(t *testing.T, thumbnails bool) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	tmp := t.TempDir()
	root := filepath.Join(tmp, "images")
	require.NoError(t, os.MkdirAll(root, 0o755))

	db, err := database.New(context.Background(), filepath.Join(tmp, "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	config := &startup.Config{
		ImagesDir:          root,
		CatalogExtensions:  mediatypes.DefaultCatalogExtensions,
		MetadataExtensions: mediatypes.DefaultMetadataExtensions,
	}

	rec, err := indexer.NewReconciler(db, indexer.Config{
		Root:     root,
		Registry: config.Registry(),
		Walker:   indexer.WalkerConfig{Workers: 2, SkipHidden: true},
	})
	require.NoError(t, err)

	// A tiny cooldown lets every request see the files written before it.
	coord := indexer.NewCoordinator(rec, time.Nanosecond)
	idx := indexer.New(coord, db, 0)
	thumbGen := media.NewThumbnailGenerator(filepath.Join(tmp, "thumbnails"), 32, thumbnails)

	h := New(db, coord, idx, thumbGen, config)
	return &testServer{root: root, db: db, coord: coord, h: h, router: h.Router(true)}
}

// write creates rel under the images root with a fixed modification time.
func (s *testServer) write(t *testing.T, rel string, data []byte, mtime time.Time) {
	t.Helper()
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, target, http.NoBody))
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func paths(entries []database.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

type uploadFile struct {
	field string
	name  string
	data  []byte
}

// uploadRequest builds a multipart POST to /api/upload. A nil prompt omits
// the field.
func uploadRequest(t *testing.T, prefix string, prompt *string, files ...uploadFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		field := f.field
		if field == "" {
			field = "files[]"
		}
		fw, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader(f.data))
		require.NoError(t, err)
	}
	if prefix != "" {
		require.NoError(t, mw.WriteField("filename_prefix", prefix))
	}
	if prompt != nil {
		require.NoError(t, mw.WriteField("prompt", *prompt))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// makePNG encodes a small distinct image, optionally embedding prompt as a
// tEXt chunk right after IHDR.
func makePNG(t *testing.T, shade uint8, prompt string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		img.Set(x, 0, color.RGBA{R: shade, G: uint8(x * 20), B: 40, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	raw := buf.Bytes()
	if prompt == "" {
		return raw
	}

	const afterIHDR = 8 + 25
	data := []byte("prompt\x00" + prompt)

	var c bytes.Buffer
	_ = binary.Write(&c, binary.BigEndian, uint32(len(data)))
	c.WriteString("tEXt")
	c.Write(data)
	_ = binary.Write(&c, binary.BigEndian, crc32.ChecksumIEEE(append([]byte("tEXt"), data...)))

	out := append([]byte{}, raw[:afterIHDR]...)
	out = append(out, c.Bytes()...)
	return append(out, raw[afterIHDR:]...)
}

func strPtr(s string) *string { return &s }
