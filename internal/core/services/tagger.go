package services

import "github.com/custodia-labs/docrag/internal/core/domain"

// TagLatest marks each chunk whose version is the highest among the chunks
// of the same logical document in this set. Only the given chunks are
// compared; a newer revision that was not retrieved does not count.
// Order is preserved and the input is not modified.
func TagLatest(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	latest := make(map[domain.VersionKey]int, len(chunks))
	for _, rc := range chunks {
		key := rc.Chunk.Key()
		if v, ok := latest[key]; !ok || rc.Chunk.Version > v {
			latest[key] = rc.Chunk.Version
		}
	}

	out := make([]domain.RetrievedChunk, len(chunks))
	for i, rc := range chunks {
		rc.IsLatest = rc.Chunk.Version == latest[rc.Chunk.Key()]
		out[i] = rc
	}
	return out
}
