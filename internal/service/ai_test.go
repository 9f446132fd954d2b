package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"onebox/backend/internal/ai"
	"onebox/backend/internal/domain"
	"onebox/backend/internal/monitoring"
	"onebox/backend/internal/storage"
	"onebox/backend/internal/storage/memory"
)

func newAIService(store *memory.Store) *AIService {
	return NewAIService(store, ai.NewReplySuggester(fixedRand(0), ""), monitoring.NewMetrics(), zap.NewNop())
}

func TestAIService_CategorizeEmail(t *testing.T) {
	store := memory.NewStore()
	seedEmails(t, store)
	svc := newAIService(store)

	// "Meeting Tomorrow" 带 work 标签，命中 important 一个信号：置信度 80 >= 75
	c, err := svc.CategorizeEmail("1")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryImportant, c.Category)

	stored, err := store.GetEmail("1")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryImportant, stored.Category)

	_, err = svc.CategorizeEmail("missing")
	assert.ErrorIs(t, err, storage.ErrEmailNotFound)
}

func TestAIService_ThresholdDowngrades(t *testing.T) {
	store := memory.NewStore()
	seedEmails(t, store)
	svc := newAIService(store)

	settings := domain.DefaultAISettings()
	settings.Categories.Threshold = 95
	_, err := svc.UpdateSettings(settings)
	require.NoError(t, err)

	c, err := svc.CategorizeEmail("1")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryNeutral, c.Category)
}

func TestAIService_Disabled(t *testing.T) {
	store := memory.NewStore()
	seedEmails(t, store)
	svc := newAIService(store)

	settings := domain.DefaultAISettings()
	settings.Enabled = false
	_, err := svc.UpdateSettings(settings)
	require.NoError(t, err)

	_, err = svc.CategorizeEmail("1")
	assert.ErrorIs(t, err, ErrAIDisabled)
	_, err = svc.GenerateReply("1", "")
	assert.ErrorIs(t, err, ErrAIDisabled)

	email, err := store.GetEmail("1")
	require.NoError(t, err)
	applied, err := svc.AutoCategorize(email)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, email.Category)
}

func TestAIService_RepliesDisabled(t *testing.T) {
	store := memory.NewStore()
	seedEmails(t, store)
	svc := newAIService(store)

	settings := domain.DefaultAISettings()
	settings.SuggestedReplies.Enabled = false
	_, err := svc.UpdateSettings(settings)
	require.NoError(t, err)

	_, err = svc.GenerateReply("1", domain.ReplyStyleFriendly)
	assert.ErrorIs(t, err, ErrRepliesDisabled)
}

func TestAIService_GenerateReply(t *testing.T) {
	store := memory.NewStore()
	seedEmails(t, store)
	svc := newAIService(store)

	reply, err := svc.GenerateReply("1", "")
	require.NoError(t, err)
	assert.Equal(t, "Dear John Doe, \n\nThanks for the meeting invite. I've added it to my calendar and look forward to our discussion.\n\nBest regards,\n[Your Name]", reply)

	stored, err := store.GetEmail("1")
	require.NoError(t, err)
	assert.Equal(t, reply, stored.SuggestedReply)

	reply, err = svc.GenerateReply("1", domain.ReplyStyleFriendly)
	require.NoError(t, err)
	assert.Contains(t, reply, "Hi John, ")

	_, err = svc.GenerateReply("1", "pirate")
	assert.ErrorIs(t, err, domain.ErrInvalidReplyStyle)
}

func TestAIService_UpdateSettingsValidation(t *testing.T) {
	svc := newAIService(memory.NewStore())

	settings := domain.DefaultAISettings()
	settings.Categories.Threshold = 101
	_, err := svc.UpdateSettings(settings)
	assert.ErrorIs(t, err, domain.ErrThresholdOutOfRange)

	settings = domain.DefaultAISettings()
	settings.SuggestedReplies.Style = ""
	saved, err := svc.UpdateSettings(settings)
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyStyleProfessional, saved.SuggestedReplies.Style)
}

func TestAIService_AnalyzeSentiment(t *testing.T) {
	svc := newAIService(memory.NewStore())
	got := svc.AnalyzeSentiment("Thank you, great and excellent work")
	assert.Equal(t, ai.SentimentPositive, got.Sentiment)
	assert.Equal(t, 3, got.Score)
}

func TestSearchService(t *testing.T) {
	store := memory.NewStore()
	seedEmails(t, store)
	svc := NewSearchService(store, monitoring.NewMetrics())

	results, err := svc.Search(domain.SearchQuery{Query: "amazon"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2", results[0].ID)

	results, q, err := svc.SearchText("from:john is:unread", false)
	require.NoError(t, err)
	require.NotNil(t, q.Filters)
	assert.Equal(t, "john", q.Filters.Sender)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)

	assert.Equal(t, []string{"is:unread"}, svc.Suggestions("unread"))
}
