package domain

// IndexEntry is one document held by the local index.
type IndexEntry struct {
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	Embedding  []float32      `json:"embedding"`
}

type SearchResult struct {
	DocumentID  string  `json:"document_id"`
	Title       string  `json:"title"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	ArtifactURL string  `json:"artifact_url,omitempty"`
}

// RemoteStatus is the outcome class of a call to the remote retrieval backend.
type RemoteStatus int

const (
	RemoteOK RemoteStatus = iota
	// RemoteUnavailable covers transport errors, timeouts, 5xx and open breakers.
	RemoteUnavailable
	// RemoteInvalid covers rejected requests and undecodable responses.
	RemoteInvalid
)

func (s RemoteStatus) String() string {
	switch s {
	case RemoteOK:
		return "ok"
	case RemoteUnavailable:
		return "unavailable"
	case RemoteInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

type RemoteIndexResult struct {
	Status RemoteStatus
	Err    error
}

// RemoteHit is one raw match returned by the remote backend.
type RemoteHit struct {
	DocumentID string
	Content    string
	Metadata   map[string]any
	Score      float64
}

type RemoteSearchResult struct {
	Status RemoteStatus
	Hits   []RemoteHit
	Err    error
}

// RemoteHealth is the result of the startup reachability probe.
type RemoteHealth string

const (
	RemoteConnected     RemoteHealth = "connected"
	RemoteUnreachable   RemoteHealth = "unreachable"
	RemoteNotConfigured RemoteHealth = "not_configured"
)

// ChatReply is the answer produced from retrieved documents.
type ChatReply struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}
