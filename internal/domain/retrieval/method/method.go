package method

// Method is the retrieval strategy.
type Method string

// Retrieval method constants.
const (
	// Hybrid combines vector similarity and keyword search.
	Hybrid Method = "hybrid"
	Vector Method = "vector"
	// Keyword is BM25-only search. Accepted from clients as "traditional" too.
	Keyword Method = "keyword"
)

// Parse normalizes a client-supplied method string. The surrounding system
// historically calls keyword search "traditional"; both spellings are accepted.
func Parse(s string) (Method, bool) {
	switch Method(s) {
	case Hybrid, Vector, Keyword:
		return Method(s), true
	}
	if s == "traditional" {
		return Keyword, true
	}
	return "", false
}

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	return m == Hybrid || m == Vector || m == Keyword
}
