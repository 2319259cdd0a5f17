package router

import (
	"encoding/json"
	"os"

	"github.com/chainward/chainward/internal/chainerr"
)

// VectorEntry is one profile's stored embedding. The persisted field
// is named skillName for compatibility with stores generated against
// skill descriptions.
type VectorEntry struct {
	SkillName       string    `json:"skillName"`
	Description     string    `json:"description"`
	TriggerExamples []string  `json:"triggerExamples"`
	Embedding       []float64 `json:"embedding"`
	Keywords        []string  `json:"keywords"`
}

// VectorStore is the optional on-disk embedding cache.
// Its absence disables the embedding-scoring path entirely; its
// presence with a mismatched model is treated as spec_invalid rather
// than silently producing incomparable scores.
type VectorStore struct {
	Version     string        `json:"version"`
	Model       string        `json:"model"`
	GeneratedAt string        `json:"generatedAt"`
	Entries     []VectorEntry `json:"skills"`
}

// EntryFor returns the stored vector for name, if any.
func (vs *VectorStore) EntryFor(name string) (VectorEntry, bool) {
	if vs == nil {
		return VectorEntry{}, false
	}
	for _, e := range vs.Entries {
		if e.SkillName == name {
			return e, true
		}
	}
	return VectorEntry{}, false
}

// LoadVectorStore reads and validates path against expectedModel. A
// missing file is not an error — it returns (nil, nil), signaling the
// caller to fall back to keyword-only scoring.
func LoadVectorStore(path, expectedModel string) (*VectorStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "reading vector store")
	}

	var vs VectorStore
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, chainerr.Wrap(chainerr.SpecInvalid, err, "parsing vector store")
	}

	if expectedModel != "" && vs.Model != "" && vs.Model != expectedModel {
		return nil, chainerr.Newf(chainerr.SpecInvalid, "vector store model %q does not match configured model %q", vs.Model, expectedModel).
			With("stored_model", vs.Model).With("expected_model", expectedModel)
	}

	return &vs, nil
}
