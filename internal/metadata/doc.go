// Package metadata extracts generation parameters embedded in PNG files by
// node-based image generation tools.
//
// Such tools store the node graph that produced an image as JSON in a PNG
// text chunk with the keyword "prompt". ReadTextField locates the chunk
// (tEXt, zTXt or iTXt) and Flatten turns the graph into key/value pairs:
//
//	{"3": {"inputs": {"seed": 42, "steps": 20, "model": ["4", 0]}}}
//
// becomes seed=42 and steps=20. The "type" and "device" inputs and all
// non-scalar values are dropped. Keys are the bare input names, and
// repeated keys from different nodes are all kept.
//
// Extractor.Extract never returns an error; anything unexpected is logged
// and yields no pairs.
package metadata
