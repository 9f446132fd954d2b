// Package ai 提供基于关键词规则的邮件分类、回复建议与情感分析。
package ai

import (
	"strings"

	"onebox/backend/internal/domain"
)

// Classification 分类结果，Confidence 取值 0-100
type Classification struct {
	Category   domain.Category `json:"category"`
	Confidence int             `json:"confidence"`
}

// rule 一条分类规则，命中任一信号即归入该分类
type rule struct {
	category domain.Category
	signals  []func(e *domain.Email) bool
}

func subjectContains(word string) func(e *domain.Email) bool {
	return func(e *domain.Email) bool {
		return strings.Contains(strings.ToLower(e.Subject), word)
	}
}

func hasLabel(label string) func(e *domain.Email) bool {
	return func(e *domain.Email) bool {
		return e.HasLabel(label)
	}
}

func senderContains(word string) func(e *domain.Email) bool {
	return func(e *domain.Email) bool {
		return strings.Contains(e.From.Email, word)
	}
}

// rules 按优先级排列，先命中者生效
var rules = []rule{
	{
		category: domain.CategorySpam,
		signals:  []func(*domain.Email) bool{subjectContains("urgent"), subjectContains("verify"), subjectContains("account")},
	},
	{
		category: domain.CategoryImportant,
		signals:  []func(*domain.Email) bool{hasLabel("work"), hasLabel("important"), subjectContains("project")},
	},
	{
		category: domain.CategoryInterested,
		signals:  []func(*domain.Email) bool{senderContains("amazon"), senderContains("order"), subjectContains("order")},
	},
}

const (
	baseConfidence   = 70
	signalConfidence = 10
)

// Categorizer 规则分类器，无状态，可并发使用
type Categorizer struct{}

// NewCategorizer 创建分类器
func NewCategorizer() *Categorizer {
	return &Categorizer{}
}

// Categorize 只看主题、标签和发件地址，结果确定
func (c *Categorizer) Categorize(email *domain.Email) domain.Category {
	return c.Classify(email).Category
}

// Classify 返回分类与置信度。
// 置信度为 70 加上命中规则内每个信号 10 分，最高 100；未命中任何规则时为 neutral，置信度 100。
func (c *Categorizer) Classify(email *domain.Email) Classification {
	for _, r := range rules {
		matched := 0
		for _, signal := range r.signals {
			if signal(email) {
				matched++
			}
		}
		if matched > 0 {
			confidence := baseConfidence + signalConfidence*matched
			if confidence > 100 {
				confidence = 100
			}
			return Classification{Category: r.category, Confidence: confidence}
		}
	}
	return Classification{Category: domain.CategoryNeutral, Confidence: 100}
}
