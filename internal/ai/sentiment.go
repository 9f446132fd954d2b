package ai

import "strings"

// Sentiment 情感倾向
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// SentimentResult 情感分析结果，Score 为正面词数减负面词数
type SentimentResult struct {
	Sentiment Sentiment `json:"sentiment"`
	Score     int       `json:"score"`
}

var (
	positiveWords = []string{"thank", "appreciate", "good", "great", "excellent", "happy", "pleased"}
	negativeWords = []string{"urgent", "issue", "problem", "concerned", "disappointed", "unhappy", "error"}
)

// AnalyzeSentiment 关键词情感分析，每个词只按是否出现计一次
func AnalyzeSentiment(content string) SentimentResult {
	content = strings.ToLower(content)

	score := 0
	for _, w := range positiveWords {
		if strings.Contains(content, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(content, w) {
			score--
		}
	}

	result := SentimentResult{Sentiment: SentimentNeutral, Score: score}
	switch {
	case score > 1:
		result.Sentiment = SentimentPositive
	case score < -1:
		result.Sentiment = SentimentNegative
	}
	return result
}
