package domain

// StatusDocument is the wire form of SessionState served at GET /status.
// It is built fresh per request and never cached.
type StatusDocument struct {
	Blocking bool     `json:"blocking"`
	Sites    []string `json:"sites"`
}

// NewStatusDocument converts a session snapshot into its wire form. Sites is
// always non-nil so it encodes as [] rather than null.
func NewStatusDocument(s SessionState) StatusDocument {
	sites := make([]string, len(s.Rules))
	copy(sites, s.Rules)
	return StatusDocument{Blocking: s.Blocking, Sites: sites}
}
