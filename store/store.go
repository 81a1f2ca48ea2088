package store

import (
	"context"
	"time"

	"github.com/otakulab/animesommelier/internal/profile"
	"github.com/otakulab/animesommelier/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// conversationCache holds conversation rows for the ownership
	// check that runs at the top of every turn. Invalidation happens
	// in-process only, so the cache assumes a single server instance
	// owns the database.
	conversationCache *cache.Cache
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		conversationCache: cache.New(cache.Config{
			DefaultTTL:      time.Minute,
			CleanupInterval: 5 * time.Minute,
			MaxItems:        1000,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	s.conversationCache.Close()
	return s.driver.Close()
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

// GetConversation returns the conversation with the given id, or nil
// when it does not exist. Hits the in-process cache first.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	if v, ok := s.conversationCache.Get(id); ok {
		if conversation, ok := v.(*Conversation); ok {
			return conversation, nil
		}
	}
	list, err := s.driver.ListConversations(ctx, &FindConversation{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	s.conversationCache.Set(id, list[0])
	return list[0], nil
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

func (s *Store) CountConversations(ctx context.Context, userID string) (int, error) {
	return s.driver.CountConversations(ctx, userID)
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	s.conversationCache.Delete(update.ID)
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) DeleteConversation(ctx context.Context, delete *DeleteConversation) error {
	s.conversationCache.Delete(delete.ID)
	return s.driver.DeleteConversation(ctx, delete)
}

func (s *Store) CreateTurnMessages(ctx context.Context, user *Message, assistant *Message, fallbackTitle string) error {
	// The title backfill may change the conversation row.
	s.conversationCache.Delete(user.ConversationID)
	return s.driver.CreateTurnMessages(ctx, user, assistant, fallbackTitle)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) CountMessages(ctx context.Context, conversationIDs []string) (map[string]int, error) {
	return s.driver.CountMessages(ctx, conversationIDs)
}

func (s *Store) UpsertAnimeCache(ctx context.Context, upsert *AnimeCacheEntry) (*AnimeCacheEntry, error) {
	return s.driver.UpsertAnimeCache(ctx, upsert)
}

func (s *Store) ListAnimeCache(ctx context.Context, find *FindAnimeCache) ([]*AnimeCacheEntry, error) {
	return s.driver.ListAnimeCache(ctx, find)
}
