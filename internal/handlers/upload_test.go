package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genai-gallery/internal/database"
)

func TestUploadStoresSequencedFiles(t *testing.T) {
	s := setupServer(t, false)
	s.write(t, "outputs/fox_00007.png", makePNG(t, 9, ""), t0)

	w := s.do(t, uploadRequest(t, "outputs/fox", strPtr("a lantern at dusk"),
		uploadFile{name: "first.png", data: makePNG(t, 1, graph)},
		uploadFile{field: "files", name: "second.JPG", data: []byte("jpeg bytes")},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	created := decode[[]database.Entry](t, w)
	require.Len(t, created, 2)
	assert.Equal(t, "outputs/fox_00008.png", created[0].Path)
	assert.Equal(t, "outputs/fox_00009.jpg", created[1].Path)
	for _, e := range created {
		require.NotNil(t, e.Prompt)
		assert.Equal(t, "a lantern at dusk", *e.Prompt)
	}
	assert.Contains(t, created[0].MetadataItems, database.MetadataItem{Key: "seed", Value: "42"})

	assert.FileExists(t, filepath.Join(s.root, "outputs", "fox_00008.png"))
	assert.FileExists(t, filepath.Join(s.root, "outputs", "fox_00009.jpg"))

	found := decode[[]database.Entry](t, s.get(t, "/api/images?q=lantern"))
	assert.ElementsMatch(t, []string{"outputs/fox_00008.png", "outputs/fox_00009.jpg"}, paths(found))
}

func TestUploadDefaultsAndDuplicates(t *testing.T) {
	s := setupServer(t, false)
	data := makePNG(t, 3, "")

	w := s.do(t, uploadRequest(t, "", nil, uploadFile{name: "a.png", data: data}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[[]database.Entry](t, w)
	require.Len(t, first, 1)
	assert.Equal(t, "upload_00001.png", first[0].Path)
	assert.Nil(t, first[0].Prompt)

	// Same bytes again: stored on disk, but the catalog keeps the
	// canonical path.
	w = s.do(t, uploadRequest(t, "", nil, uploadFile{name: "b.png", data: data}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[[]database.Entry](t, w)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Hash, second[0].Hash)
	assert.Equal(t, "upload_00001.png", second[0].Path)
	assert.FileExists(t, filepath.Join(s.root, "upload_00002.png"))
}

func TestUploadRejects(t *testing.T) {
	s := setupServer(t, false)

	tests := []struct {
		name string
		req  *http.Request
		code int
	}{
		{"no files", uploadRequest(t, "x", nil), http.StatusBadRequest},
		{"traversal prefix", uploadRequest(t, "../escape", nil, uploadFile{name: "a.png", data: []byte("x")}), http.StatusBadRequest},
		{"hidden prefix", uploadRequest(t, ".secret/x", nil, uploadFile{name: "a.png", data: []byte("x")}), http.StatusBadRequest},
		{"unsupported type", uploadRequest(t, "x", nil, uploadFile{name: "notes.txt", data: []byte("x")}), http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	entries, err := os.ReadDir(s.root)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not write files")
}

func TestSplitPrefix(t *testing.T) {
	tests := []struct {
		prefix   string
		dir      string
		base     string
		wantsErr bool
	}{
		{"", "", defaultUploadBase, false},
		{"fox", "", "fox", false},
		{"/outputs/fox/", "outputs", "fox", false},
		{"outputs/2026/fox", "outputs/2026", "fox", false},
		{"../fox", "", "", true},
		{"outputs/.cache/fox", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			dir, base, err := splitPrefix(tt.prefix)
			if tt.wantsErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dir, dir)
			assert.Equal(t, tt.base, base)
		})
	}
}

func TestNextSequence(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fox_00001.png", "fox_00012.jpg", "fox_final.png", "foxy_00099.png", "fox_.png", "other.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	n, err := nextSequence(dir, "fox")
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	n, err = nextSequence(dir, "wolf")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
