package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OnboardingStep 新用户引导流程所处的步骤
type OnboardingStep string

const (
	StepWelcome        OnboardingStep = "new_user_welcome"
	StepAwaitingIncome OnboardingStep = "awaiting_income"
	StepAwaitingGoal   OnboardingStep = "awaiting_goal_after_income"
	StepComplete       OnboardingStep = "complete"
)

// DefaultDisplayName 平台没有提供昵称时使用
const DefaultDisplayName = "Usuário"

// UserProfile 每个 WhatsApp 号码对应一条记录，首次发消息时创建
type UserProfile struct {
	ID                 string              `gorm:"primaryKey;type:varchar(32)" json:"id"`
	DisplayName        string              `gorm:"type:varchar(100)" json:"display_name"`
	MonthlyIncome      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"monthly_income"`
	FinancialGoal      *string             `gorm:"type:text" json:"financial_goal,omitempty"`
	OnboardingStep     OnboardingStep      `gorm:"type:varchar(40);not null" json:"onboarding_step"`
	OnboardingComplete bool                `gorm:"not null;default:false" json:"onboarding_complete"`

	// 预算提醒水位线：本月已经提醒过的最高百分比档位
	LastWarnedThreshold int    `gorm:"not null;default:0" json:"last_warned_threshold"`
	LastWarnedMonth     string `gorm:"type:varchar(7)" json:"last_warned_month"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 强制指定表名
func (UserProfile) TableName() string {
	return "users"
}

// HasIncome 收入已登记且大于 0
func (u *UserProfile) HasIncome() bool {
	return u.MonthlyIncome.Valid && u.MonthlyIncome.Decimal.IsPositive()
}

// WarnedThresholdFor 返回指定月份 (YYYY-MM) 的有效水位线，跨月视为 0
func (u *UserProfile) WarnedThresholdFor(month string) int {
	if u.LastWarnedMonth != month {
		return 0
	}
	return u.LastWarnedThreshold
}
