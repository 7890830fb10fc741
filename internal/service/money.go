package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const currencySymbol = "R$"

// maxAmount 金额列是 decimal(12,2)，绝对值必须小于 1e10
var maxAmount = decimal.New(1, 10)

// ParseAmount 解析用户或模型给出的金额。
// 支持 "150"、"150.5"、"150,50"、"R$ 1.234,56" 这几种写法
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, currencySymbol)
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// 1.234,56: 点是千分位，逗号是小数点
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, fmt.Errorf("%w: out of range %q", ErrInvalidNumber, raw)
	}
	return d.Round(2), nil
}

// ParseIncome 收入不允许为负数
func ParseIncome(raw string) (decimal.Decimal, error) {
	d, err := ParseAmount(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: negative income %q", ErrInvalidNumber, raw)
	}
	return d, nil
}

// formatMoney 统一输出 R$123.45
func formatMoney(d decimal.Decimal) string {
	return currencySymbol + d.StringFixed(2)
}
