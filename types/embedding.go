package types

// EmbeddingMode tells the embedding provider whether texts are stored
// passages or a search query. Providers that support task types embed the
// two differently.
type EmbeddingMode int

const (
	DocumentMode EmbeddingMode = iota
	QueryMode
)

func (m EmbeddingMode) String() string {
	if m == QueryMode {
		return "query"
	}
	return "document"
}
