package schemaindex

import (
	"context"
	"hash/fnv"
	"strings"

	"genbi/internal/domain"
)

// defaultEmbedDim is the vector width of the hashing embedder. Wide enough
// that schema-sized vocabularies rarely collide.
const defaultEmbedDim = 512

// HashEmbedder is a deterministic local embedder: each token is hashed into
// a fixed-width bucket vector. Texts sharing tokens land near each other,
// which is all schema retrieval needs when no model endpoint is configured.
// The same text always produces the same vector.
type HashEmbedder struct {
	dim int
}

var _ domain.Embedder = (*HashEmbedder)(nil)

func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{dim: defaultEmbedDim}
}

func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		vec[f.Sum32()%uint32(h.dim)]++
	}
	return vec, nil
}

// tokenize lowercases and splits on anything that is not a letter or digit,
// treating underscores as separators so snake_case column names match their
// natural-language words.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		}
		return true
	})
}
