package store

// Conversation is a persisted chat thread owned by exactly one user.
// PersonaType is immutable after creation.
type Conversation struct {
	ID          string
	UserID      string
	PersonaType string
	Title       string // empty means untitled
	CreatedTs   int64
	UpdatedTs   int64
}

type FindConversation struct {
	ID     *string
	UserID *string
	Limit  *int
	Offset *int
}

type UpdateConversation struct {
	ID        string
	Title     *string
	UpdatedTs *int64
}

type DeleteConversation struct {
	ID string
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// AnimeReference is the lightweight catalog pointer attached to an
// assistant message. Full catalog records are never embedded in messages.
type AnimeReference struct {
	MALID int    `json:"mal_id"`
	Title string `json:"title"`
}

// Message is immutable once written. A turn inserts exactly one user
// message followed by one assistant message in a single transaction.
type Message struct {
	ID              string
	ConversationID  string
	Role            MessageRole
	Content         string
	Embedding       []float32 // nil when enrichment was skipped or failed
	AnimeReferences []AnimeReference
	CreatedTs       int64
}

type FindMessage struct {
	ConversationID *string
	// LastN limits the result to the most recent N messages. The
	// returned slice is always ordered oldest to newest.
	LastN *int
}
