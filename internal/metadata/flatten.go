package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/buger/jsonparser"
)

// Pair is one flattened node input. A graph may yield several pairs with
// the same key.
type Pair struct {
	Key   string
	Value string
}

// reservedInputs are node inputs that describe plumbing, not generation
// parameters.
var reservedInputs = map[string]bool{
	"type":   true,
	"device": true,
}

var errNotObject = errors.New("node graph is not a JSON object")

// Flatten walks a node graph of the form
//
//	{"<node id>": {"inputs": {"<key>": <value>, ...}, "class_type": "..."}, ...}
//
// and returns every scalar input in document order. Nodes without an
// "inputs" object are skipped; array, object and null values are dropped.
// Malformed JSON yields an error and no pairs.
func Flatten(graph []byte) ([]Pair, error) {
	graph = bytes.TrimSpace(graph)
	if !json.Valid(graph) {
		return nil, errors.New("node graph is not valid JSON")
	}
	if len(graph) == 0 || graph[0] != '{' {
		return nil, errNotObject
	}

	var pairs []Pair
	err := jsonparser.ObjectEach(graph, func(_ []byte, node []byte, nodeType jsonparser.ValueType, _ int) error {
		if nodeType != jsonparser.Object {
			return nil
		}
		inputs, inputsType, _, err := jsonparser.Get(node, "inputs")
		if err != nil || inputsType != jsonparser.Object {
			return nil
		}
		return jsonparser.ObjectEach(inputs, func(key []byte, value []byte, valueType jsonparser.ValueType, _ int) error {
			k := string(key)
			if reservedInputs[k] {
				return nil
			}
			v, ok, err := scalarText(value, valueType)
			if err != nil {
				return fmt.Errorf("input %q: %w", k, err)
			}
			if ok {
				pairs = append(pairs, Pair{Key: k, Value: v})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

// scalarText renders a JSON scalar as text. ok is false for values that are
// not kept (null, arrays, objects).
func scalarText(raw []byte, t jsonparser.ValueType) (string, bool, error) {
	switch t {
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		return s, err == nil, err
	case jsonparser.Number:
		s, err := numberText(raw)
		return s, err == nil, err
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		return strconv.FormatBool(b), err == nil, err
	default:
		return "", false, nil
	}
}

// numberText keeps integer literals digit-for-digit so 64-bit seeds are not
// rounded. Other numbers render integral values without a fraction and
// everything else with %g.
func numberText(raw []byte) (string, error) {
	if bytes.IndexAny(raw, ".eE") < 0 {
		if _, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			return string(raw), nil
		}
		if _, err := strconv.ParseUint(string(raw), 10, 64); err == nil {
			return string(raw), nil
		}
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", err
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
