package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	CountConversations(ctx context.Context, userID string) (int, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)
	DeleteConversation(ctx context.Context, delete *DeleteConversation) error

	// Message model related methods. CreateTurnMessages inserts the
	// user/assistant pair in one transaction and backfills the
	// conversation title from fallbackTitle when the conversation is
	// still untitled. Messages are never updated.
	CreateTurnMessages(ctx context.Context, user *Message, assistant *Message, fallbackTitle string) error
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	CountMessages(ctx context.Context, conversationIDs []string) (map[string]int, error)

	// AnimeCache model related methods. Upsert is idempotent by mal_id.
	UpsertAnimeCache(ctx context.Context, upsert *AnimeCacheEntry) (*AnimeCacheEntry, error)
	ListAnimeCache(ctx context.Context, find *FindAnimeCache) ([]*AnimeCacheEntry, error)
}
