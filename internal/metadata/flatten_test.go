package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenDuplicateKeysAndReservedInputs(t *testing.T) {
	graph := `{"3": {"inputs": {"seed": 42, "type": "INT"}, "class_type": "X"},
	           "7": {"inputs": {"seed": 7}, "class_type": "Y"}}`

	pairs, err := Flatten([]byte(graph))
	require.NoError(t, err)

	assert.Equal(t, []Pair{{"seed", "42"}, {"seed", "7"}}, pairs)
	for _, p := range pairs {
		assert.NotEqual(t, "type", p.Key)
	}
}

func TestFlattenValueCoercion(t *testing.T) {
	graph := `{"1": {"inputs": {
		"text": "a \"quoted\" cat\nline two",
		"big_seed": 1125899906842624123,
		"unsigned": 18446744073709551615,
		"steps": 20,
		"cfg": 7.5,
		"denoise": 1.0,
		"scale": 1e3,
		"tiny": 1e-7,
		"negative": -3,
		"tiling": false,
		"enabled": true,
		"nothing": null,
		"model": ["4", 0],
		"nested": {"a": 1},
		"device": "cuda"
	}}}`

	pairs, err := Flatten([]byte(graph))
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{"text", "a \"quoted\" cat\nline two"},
		{"big_seed", "1125899906842624123"},
		{"unsigned", "18446744073709551615"},
		{"steps", "20"},
		{"cfg", "7.5"},
		{"denoise", "1"},
		{"scale", "1000"},
		{"tiny", "1e-07"},
		{"negative", "-3"},
		{"tiling", "false"},
		{"enabled", "true"},
	}, pairs)
}

func TestFlattenSkipsOddNodes(t *testing.T) {
	graph := `{
		"1": "not a node",
		"2": {"class_type": "NoInputs"},
		"3": {"inputs": [1, 2, 3]},
		"4": {"inputs": {"sampler_name": "euler"}}
	}`

	pairs, err := Flatten([]byte(graph))
	require.NoError(t, err)
	assert.Equal(t, []Pair{{"sampler_name", "euler"}}, pairs)
}

func TestFlattenRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		graph string
	}{
		{"empty", ""},
		{"truncated", `{"1": {"inputs": {"seed": 4`},
		{"trailing garbage", `{"1": {"inputs": {"seed": 4}}} xyz`},
		{"top-level array", `[{"inputs": {"seed": 1}}]`},
		{"top-level string", `"prompt"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs, err := Flatten([]byte(tt.graph))
			assert.Error(t, err)
			assert.Empty(t, pairs)
		})
	}
}

func TestFlattenEmptyGraph(t *testing.T) {
	pairs, err := Flatten([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
