package hermes

// NATS subjects for import events.
const (
	SubjectImportRequested = "swarm.rapport.import.requested"
	SubjectImportCompleted = "swarm.rapport.import.completed"
	SubjectImportEmpty     = "swarm.rapport.import.empty"
)

// ImportRequested asks the service to import a raw export.
type ImportRequested struct {
	RelationshipID string `json:"relationship_id"`
	OwnerUUID      string `json:"owner_uuid"`
	Content        string `json:"content"`
	Format         string `json:"format,omitempty"`
	Contact        string `json:"contact,omitempty"`
}

// ImportCompleted is published after an import was analysed and stored.
type ImportCompleted struct {
	ImportID           string `json:"import_id"`
	RelationshipID     string `json:"relationship_id"`
	OwnerUUID          string `json:"owner_uuid"`
	Format             string `json:"format"`
	ParserID           string `json:"parser_id"`
	Messages           int    `json:"messages"`
	Sessions           int    `json:"sessions"`
	Memories           int    `json:"memories"`
	ConnectionScore    int    `json:"connection_score"`
	RelationshipLevel  int    `json:"relationship_level"`
	SentimentLabel     string `json:"sentiment_label"`
	TimestampFallbacks int    `json:"timestamp_fallbacks"`
	Dropped            int    `json:"dropped"`
	InsightSource      string `json:"insight_source"`
}

// ImportEmpty is published when nothing in an export could be parsed.
type ImportEmpty struct {
	RelationshipID string `json:"relationship_id"`
	OwnerUUID      string `json:"owner_uuid"`
	Format         string `json:"format"`
	Bytes          int    `json:"bytes"`
	Reason         string `json:"reason"`
}
