package metadata

import (
	"errors"

	"genai-gallery/internal/filesystem"
	"genai-gallery/internal/logging"
	"genai-gallery/internal/metrics"

	"github.com/rs/zerolog"
)

// Version identifies the extraction rules. Bump it when Flatten or the
// side-channel reader changes so existing entries without metadata are
// re-extracted once.
const Version = 1

// PromptKeyword is the PNG text keyword holding the node graph.
const PromptKeyword = "prompt"

// Extractor reads embedded generation metadata from image files.
type Extractor struct {
	keyword string
	retry   filesystem.RetryConfig
	log     zerolog.Logger
}

// New creates an Extractor reading the "prompt" text field.
func New() *Extractor {
	return &Extractor{
		keyword: PromptKeyword,
		retry:   filesystem.DefaultRetryConfig(),
		log:     logging.Component("metadata"),
	}
}

// Version reports the extraction rules version of this extractor.
func (e *Extractor) Version() int {
	return Version
}

// Extract returns the flattened node inputs embedded in the PNG at path.
// A missing side-channel, unreadable file or malformed graph all produce
// an empty result; failures are logged, never returned.
func (e *Extractor) Extract(path string) []Pair {
	f, err := filesystem.OpenWithRetry(path, e.retry)
	if err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("cannot open file for metadata extraction")
		metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
		return nil
	}
	defer f.Close()

	graph, found, err := ReadTextField(f, e.keyword)
	switch {
	case errors.Is(err, ErrNotPNG):
		e.log.Debug().Str("path", path).Msg("not a PNG, no side-channel")
		metrics.MetadataExtractionsTotal.WithLabelValues("absent").Inc()
		return nil
	case err != nil:
		e.log.Warn().Err(err).Str("path", path).Msg("failed to read PNG text chunks")
		metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
		return nil
	case !found:
		metrics.MetadataExtractionsTotal.WithLabelValues("absent").Inc()
		return nil
	}

	pairs, err := Flatten([]byte(graph))
	if err != nil {
		e.log.Warn().Err(err).Str("path", path).Msg("failed to parse node graph")
		metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
		return nil
	}

	metrics.MetadataExtractionsTotal.WithLabelValues("found").Inc()
	metrics.MetadataPairsExtracted.Add(float64(len(pairs)))
	e.log.Debug().Str("path", path).Int("pairs", len(pairs)).Msg("extracted metadata")
	return pairs
}
