package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/otakulab/animesommelier/internal/errors"
	"github.com/otakulab/animesommelier/plugin/ai"
	"github.com/otakulab/animesommelier/plugin/jikan"
	"github.com/otakulab/animesommelier/server/service/catalog"
	"github.com/otakulab/animesommelier/server/service/conversation"
	"github.com/otakulab/animesommelier/store"
	teststore "github.com/otakulab/animesommelier/store/test"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

type fakeCatalogClient struct {
	animes map[int]*jikan.Anime
}

func (c *fakeCatalogClient) GetAnimeByID(ctx context.Context, malID int) (*jikan.Anime, error) {
	anime, ok := c.animes[malID]
	if !ok {
		return nil, jikan.ErrAnimeNotFound
	}
	return anime, nil
}

func (c *fakeCatalogClient) SearchAnime(ctx context.Context, query string, limit int) (*jikan.SearchResult, error) {
	return &jikan.SearchResult{}, nil
}

type fixture struct {
	store         *store.Store
	llm           *fakeLLM
	embedder      *fakeEmbedder
	conversations *conversation.Service
	chat          *Service
}

func newFixture(ctx context.Context, t *testing.T) *fixture {
	ts := teststore.NewTestingStore(ctx, t)
	llm := &fakeLLM{}
	embedder := &fakeEmbedder{}
	client := &fakeCatalogClient{animes: map[int]*jikan.Anime{
		5114: {MALID: 5114, Title: "Fullmetal Alchemist: Brotherhood"},
		9253: {MALID: 9253, Title: "Steins;Gate"},
	}}
	conversations := conversation.NewService(ts, nil)
	cat := catalog.NewService(ts, client, nil)
	return &fixture{
		store:         ts,
		llm:           llm,
		embedder:      embedder,
		conversations: conversations,
		chat:          NewService(ts, llm, embedder, cat, conversations, nil),
	}
}

const recommendingResponse = "You absolutely need this one!\n\n```json\n" +
	`{"recommendations": [` +
	`{"mal_id": 5114, "title": "Fullmetal Alchemist: Brotherhood", "reasoning": "matches the mood"},` +
	`{"mal_id": 404404, "title": "Lost Tape", "reasoning": "obscure pick"}` +
	`]}` + "\n```"

func TestProcessTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("RecommendingTurn", func(t *testing.T) {
		f := newFixture(ctx, t)
		f.llm.response = recommendingResponse
		conv, err := f.conversations.Create(ctx, "alice", "sommelier", "")
		require.NoError(t, err)

		result, err := f.chat.ProcessTurn(ctx, conv.ID, "alice", "something emotional please")
		require.NoError(t, err)

		assert.Equal(t, "You absolutely need this one!", result.AssistantMessage.Content)
		assert.NotContains(t, result.AssistantMessage.Content, "```json")
		assert.Equal(t, []float32{0.1, 0.2, 0.3}, result.UserMessage.Embedding)

		// The unresolvable pick is dropped from both the hydrated
		// recommendations and the stored references.
		require.Len(t, result.AssistantMessage.AnimeReferences, 1)
		assert.Equal(t, 5114, result.AssistantMessage.AnimeReferences[0].MALID)
		assert.Equal(t, "Fullmetal Alchemist: Brotherhood", result.AssistantMessage.AnimeReferences[0].Title)
		require.Len(t, result.Recommendations, 1)
		assert.Equal(t, 5114, result.Recommendations[0].Anime.MALID)
		assert.Equal(t, "matches the mood", result.Recommendations[0].Reasoning)

		assert.Equal(t, "something emotional please", result.Conversation.Title)

		messages, err := f.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conv.ID})
		require.NoError(t, err)
		require.Len(t, messages, 2)
		assert.Equal(t, store.MessageRoleUser, messages[0].Role)
		assert.Equal(t, store.MessageRoleAssistant, messages[1].Role)
		require.Len(t, messages[1].AnimeReferences, 1)
		assert.Equal(t, 5114, messages[1].AnimeReferences[0].MALID)
	})

	t.Run("PlainChatTurn", func(t *testing.T) {
		f := newFixture(ctx, t)
		f.llm.response = "Tell me more about what you like first!"
		conv, err := f.conversations.Create(ctx, "alice", "otaku_friend", "")
		require.NoError(t, err)

		result, err := f.chat.ProcessTurn(ctx, conv.ID, "alice", "hi there")
		require.NoError(t, err)
		assert.Empty(t, result.Recommendations)
		assert.Empty(t, result.AssistantMessage.AnimeReferences)
	})

	t.Run("EmptyMessage", func(t *testing.T) {
		f := newFixture(ctx, t)
		conv, err := f.conversations.Create(ctx, "alice", "sommelier", "")
		require.NoError(t, err)

		_, err = f.chat.ProcessTurn(ctx, conv.ID, "alice", "   \n ")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
		assert.Zero(t, f.llm.calls)
	})

	t.Run("NotOwner", func(t *testing.T) {
		f := newFixture(ctx, t)
		conv, err := f.conversations.Create(ctx, "alice", "sommelier", "")
		require.NoError(t, err)

		_, err = f.chat.ProcessTurn(ctx, conv.ID, "mallory", "hello")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePermissionDenied))
		assert.Zero(t, f.llm.calls)
	})

	t.Run("CompletionOutageWritesNothing", func(t *testing.T) {
		f := newFixture(ctx, t)
		f.llm.err = fmt.Errorf("%w: 503 from provider", ai.ErrUnavailable)
		conv, err := f.conversations.Create(ctx, "alice", "cafe_owner", "")
		require.NoError(t, err)

		_, err = f.chat.ProcessTurn(ctx, conv.ID, "alice", "recommend me something")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeUpstreamUnavailable))

		messages, err := f.store.ListMessages(ctx, &store.FindMessage{ConversationID: &conv.ID})
		require.NoError(t, err)
		assert.Empty(t, messages, "a failed completion must not leave a partial turn")
	})

	t.Run("EmbeddingFailureDegrades", func(t *testing.T) {
		f := newFixture(ctx, t)
		f.llm.response = "No json here, just vibes."
		f.embedder.err = errors.New("embedding provider down")
		conv, err := f.conversations.Create(ctx, "alice", "sommelier", "")
		require.NoError(t, err)

		result, err := f.chat.ProcessTurn(ctx, conv.ID, "alice", "what about slice of life?")
		require.NoError(t, err, "embedding is best-effort")
		assert.Nil(t, result.UserMessage.Embedding)
		assert.Nil(t, result.AssistantMessage.Embedding)
	})

	t.Run("TitleBackfillRules", func(t *testing.T) {
		f := newFixture(ctx, t)
		f.llm.response = "ok!"
		conv, err := f.conversations.Create(ctx, "alice", "sommelier", "")
		require.NoError(t, err)

		long := strings.Repeat("길", 60)
		result, err := f.chat.ProcessTurn(ctx, conv.ID, "alice", long)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("길", 50), result.Conversation.Title,
			"title truncates at 50 characters, not bytes")

		// A later turn must not overwrite the existing title.
		result, err = f.chat.ProcessTurn(ctx, conv.ID, "alice", "second message")
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("길", 50), result.Conversation.Title)

		fetched, err := f.store.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("길", 50), fetched.Title)
	})
}
