package metadata

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// pngWithChunks encodes a 2x2 image and inserts the given chunks right
// after IHDR.
func pngWithChunks(t *testing.T, chunks ...[]byte) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	raw := buf.Bytes()

	// signature (8) + IHDR chunk (4+4+13+4)
	const afterIHDR = 8 + 25
	out := append([]byte{}, raw[:afterIHDR]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, raw[afterIHDR:]...)
}

func chunk(typ string, data []byte) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(typ)
	b.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	_ = binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

func textChunk(keyword, text string) []byte {
	return chunk("tEXt", []byte(keyword+"\x00"+text))
}

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func ztxtChunk(t *testing.T, keyword, text string) []byte {
	data := append([]byte(keyword+"\x00\x00"), deflate(t, text)...)
	return chunk("zTXt", data)
}

func itxtChunk(t *testing.T, keyword, text string, compress bool) []byte {
	data := []byte(keyword + "\x00")
	if compress {
		data = append(data, 1, 0)
	} else {
		data = append(data, 0, 0)
	}
	data = append(data, []byte("en\x00prompt\x00")...)
	if compress {
		data = append(data, deflate(t, text)...)
	} else {
		data = append(data, []byte(text)...)
	}
	return chunk("iTXt", data)
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
