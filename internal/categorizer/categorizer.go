// Package categorizer 根据描述里的关键词推断消费分类
package categorizer

import (
	"fmt"
	"os"
	"strings"

	"github.com/leon37/FinChatLedger/internal/model"
	"gopkg.in/yaml.v3"
)

// Rule 一个分类及其关键词
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// rulesFile 是分类 YAML 文件的结构
type rulesFile struct {
	Categories []Rule `yaml:"categories"`
}

// DefaultRules 内置规则，按优先级排列
var DefaultRules = []Rule{
	{Name: model.CategoryFood, Keywords: []string{"almoço", "jantar", "café", "lanche", "restaurante", "mercado", "comida", "padaria", "ifood", "rappi", "supermercado"}},
	{Name: model.CategoryTransport, Keywords: []string{"uber", "99", "gasolina", "estacionamento", "metrô", "ônibus", "passagem", "combustível", "taxi"}},
	{Name: model.CategoryHousing, Keywords: []string{"aluguel", "condomínio", "água", "luz", "internet", "gás", "iptu", "telefone fixo"}},
	{Name: model.CategoryLeisure, Keywords: []string{"cinema", "show", "bar", "festa", "jogo", "livro", "streaming", "netflix", "spotify", "teatro", "viagem"}},
	{Name: model.CategoryHealth, Keywords: []string{"farmácia", "remédio", "consulta", "médico", "hospital", "plano de saúde", "dentista"}},
}

// Categorizer 按顺序匹配关键词，纯函数，没有副作用
type Categorizer struct {
	rules    []Rule
	fallback string
}

// New 使用给定规则创建分类器，关键词统一转小写
func New(rules []Rule) *Categorizer {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		normalized = append(normalized, Rule{Name: name, Keywords: kws})
	}
	return &Categorizer{rules: normalized, fallback: model.FallbackCategory}
}

// Default 内置规则的分类器
func Default() *Categorizer {
	return New(DefaultRules)
}

// LoadFile 从 YAML 文件读取规则；path 为空或文件不存在时退回内置规则
func LoadFile(path string) (*Categorizer, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("读取分类文件失败: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析分类文件失败: %w", err)
	}
	if len(f.Categories) == 0 {
		return Default(), nil
	}
	return New(f.Categories), nil
}

// Categorize 返回第一个命中关键词的分类，都没命中返回 "Outros"
func (c *Categorizer) Categorize(description string) string {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Name
			}
		}
	}
	return c.fallback
}

// Categories 当前规则里的分类名，最后附上兜底分类
func (c *Categorizer) Categories() []string {
	names := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		if r.Name == c.fallback {
			continue
		}
		names = append(names, r.Name)
	}
	return append(names, c.fallback)
}
