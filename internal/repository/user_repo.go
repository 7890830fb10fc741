package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepo 用户资料的读写，每个方法都是独立的一条语句
type UserRepo interface {
	GetOrCreate(ctx context.Context, id, displayName string) (*model.UserProfile, error)
	GetByID(ctx context.Context, id string) (*model.UserProfile, error)
	UpdateOnboardingStep(ctx context.Context, id string, step model.OnboardingStep) error
	UpdateFinancialGoal(ctx context.Context, id, goal string) error
	UpdateMonthlyIncome(ctx context.Context, id string, income decimal.Decimal) error
	CompleteOnboarding(ctx context.Context, id string) error
	UpdateBudgetWarning(ctx context.Context, id string, threshold int, month string) error
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate 首次联系时创建资料，引导步骤从欢迎开始
func (r *UserRepository) GetOrCreate(ctx context.Context, id, displayName string) (*model.UserProfile, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = model.DefaultDisplayName
	}
	user := &model.UserProfile{
		ID:             id,
		DisplayName:    name,
		OnboardingStep: model.StepWelcome,
	}
	// 并发的第一条消息可能同时到达，主键冲突时忽略
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByID 没找到返回 gorm.ErrRecordNotFound
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var user model.UserProfile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateOnboardingStep(ctx context.Context, id string, step model.OnboardingStep) error {
	return r.updates(ctx, id, map[string]any{"onboarding_step": step})
}

func (r *UserRepository) UpdateFinancialGoal(ctx context.Context, id, goal string) error {
	return r.updates(ctx, id, map[string]any{"financial_goal": goal})
}

func (r *UserRepository) UpdateMonthlyIncome(ctx context.Context, id string, income decimal.Decimal) error {
	return r.updates(ctx, id, map[string]any{"monthly_income": income})
}

func (r *UserRepository) CompleteOnboarding(ctx context.Context, id string) error {
	return r.updates(ctx, id, map[string]any{
		"onboarding_complete": true,
		"onboarding_step":     model.StepComplete,
	})
}

func (r *UserRepository) UpdateBudgetWarning(ctx context.Context, id string, threshold int, month string) error {
	return r.updates(ctx, id, map[string]any{
		"last_warned_threshold": threshold,
		"last_warned_month":     month,
	})
}

func (r *UserRepository) updates(ctx context.Context, id string, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("id = ?", id).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL 在值没变化时也返回 0，这里再确认一下记录是否存在
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.UserProfile{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// IsNotFound 判断是否是记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
