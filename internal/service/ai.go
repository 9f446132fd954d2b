package service

import (
	"go.uber.org/zap"

	"onebox/backend/internal/ai"
	"onebox/backend/internal/domain"
	"onebox/backend/internal/monitoring"
	"onebox/backend/internal/storage"
)

// AIRepository AI 服务依赖的存储能力
type AIRepository interface {
	storage.EmailRepository
	storage.SettingsRepository
}

// AIService 邮件分类、回复建议与情感分析
type AIService struct {
	store       AIRepository
	categorizer *ai.Categorizer
	suggester   *ai.ReplySuggester
	metrics     *monitoring.Metrics
	log         *zap.Logger
}

// NewAIService 创建 AI 服务
func NewAIService(store AIRepository, suggester *ai.ReplySuggester, metrics *monitoring.Metrics, log *zap.Logger) *AIService {
	return &AIService{
		store:       store,
		categorizer: ai.NewCategorizer(),
		suggester:   suggester,
		metrics:     metrics,
		log:         log,
	}
}

// Settings 获取 AI 设置
func (s *AIService) Settings() (domain.AISettings, error) {
	return s.store.GetAISettings()
}

// UpdateSettings 校验并保存 AI 设置
func (s *AIService) UpdateSettings(settings domain.AISettings) (domain.AISettings, error) {
	if settings.SuggestedReplies.Style == "" {
		settings.SuggestedReplies.Style = domain.ReplyStyleProfessional
	}
	if err := settings.Validate(); err != nil {
		return domain.AISettings{}, err
	}
	if err := s.store.SaveAISettings(settings); err != nil {
		return domain.AISettings{}, err
	}
	s.log.Info("ai settings updated",
		zap.Bool("enabled", settings.Enabled),
		zap.Int("threshold", settings.Categories.Threshold),
		zap.String("style", string(settings.SuggestedReplies.Style)),
	)
	return settings, nil
}

// classify 应用阈值：置信度低于阈值时归为 neutral
func (s *AIService) classify(email *domain.Email, threshold int) ai.Classification {
	c := s.categorizer.Classify(email)
	if c.Confidence < threshold {
		c.Category = domain.CategoryNeutral
	}
	return c
}

// CategorizeEmail 对指定邮件分类并保存结果
func (s *AIService) CategorizeEmail(id string) (ai.Classification, error) {
	settings, err := s.store.GetAISettings()
	if err != nil {
		return ai.Classification{}, err
	}
	if !settings.Enabled {
		return ai.Classification{}, ErrAIDisabled
	}
	if !settings.Categories.Enabled {
		return ai.Classification{}, ErrCategoriesDisabled
	}

	email, err := s.store.GetEmail(id)
	if err != nil {
		return ai.Classification{}, err
	}

	c := s.classify(email, settings.Categories.Threshold)
	if err := s.store.SetEmailCategory(id, c.Category); err != nil {
		return ai.Classification{}, err
	}
	s.metrics.RecordCategorized(string(c.Category))
	return c, nil
}

// AutoCategorize 同步时自动分类，功能关闭时不做任何事。
// 成功时同时更新传入的 email。
func (s *AIService) AutoCategorize(email *domain.Email) (bool, error) {
	settings, err := s.store.GetAISettings()
	if err != nil {
		return false, err
	}
	if !settings.Enabled || !settings.Categories.Enabled {
		return false, nil
	}

	c := s.classify(email, settings.Categories.Threshold)
	if err := s.store.SetEmailCategory(email.ID, c.Category); err != nil {
		return false, err
	}
	email.Category = c.Category
	s.metrics.RecordCategorized(string(c.Category))
	return true, nil
}

// GenerateReply 为邮件生成回复建议，style 为空时使用设置中的风格
func (s *AIService) GenerateReply(id string, style domain.ReplyStyle) (string, error) {
	settings, err := s.store.GetAISettings()
	if err != nil {
		return "", err
	}
	if !settings.Enabled {
		return "", ErrAIDisabled
	}
	if !settings.SuggestedReplies.Enabled {
		return "", ErrRepliesDisabled
	}
	if style == "" {
		style = settings.SuggestedReplies.Style
	}
	if !style.Valid() {
		return "", domain.ErrInvalidReplyStyle
	}

	email, err := s.store.GetEmail(id)
	if err != nil {
		return "", err
	}

	reply := s.suggester.Suggest(email, style)
	if err := s.store.SetSuggestedReply(id, reply); err != nil {
		return "", err
	}
	s.metrics.RecordReplyGenerated(string(style))
	return reply, nil
}

// AnalyzeSentiment 情感分析
func (s *AIService) AnalyzeSentiment(content string) ai.SentimentResult {
	return ai.AnalyzeSentiment(content)
}
