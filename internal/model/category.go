package model

import (
	"strings"
)

// FallbackCategory 关键词都没命中时的分类
const FallbackCategory = "Outros"

// 预定义分类，顺序即关键词匹配的优先级
const (
	CategoryFood      = "Alimentação"
	CategoryTransport = "Transporte"
	CategoryHousing   = "Moradia"
	CategoryLeisure   = "Lazer"
	CategoryHealth    = "Saúde"
)

// PredefinedCategories 预定义的分类列表，作为 AI 的参考
var PredefinedCategories = []string{
	CategoryFood, CategoryTransport, CategoryHousing,
	CategoryLeisure, CategoryHealth, FallbackCategory,
}

// GetCategoryPrompt 生成 Prompt 用的分类提示词
func GetCategoryPrompt() string {
	return strings.Join(PredefinedCategories, ", ")
}

// IsFallbackCategory 空值或 "Outros" 都视为没有给出分类
func IsFallbackCategory(category string) bool {
	c := strings.TrimSpace(category)
	return c == "" || strings.EqualFold(c, FallbackCategory)
}
