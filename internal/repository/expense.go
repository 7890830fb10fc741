package repository

import (
	"context"
	"time"

	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ExpenseRepo 定义接口 (为了以后方便 Mock)
type ExpenseRepo interface {
	Create(ctx context.Context, expense *model.ExpenseEntity) error
	// ListRecent 最近 limit 条，新的在前
	ListRecent(ctx context.Context, userID string, limit int) ([]model.ExpenseEntity, error)
	// ListAll 导出用，按时间正序
	ListAll(ctx context.Context, userID string) ([]model.ExpenseEntity, error)
	// SumBetween 有效日期落在 [from, to) 之间的金额合计
	SumBetween(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error)
}

// expenseRepo 实现
type expenseRepo struct {
	db *gorm.DB
}

// NewExpenseRepo 构造函数
func NewExpenseRepo(db *gorm.DB) ExpenseRepo {
	return &expenseRepo{db: db}
}

// Create 插入一条记录
func (r *expenseRepo) Create(ctx context.Context, expense *model.ExpenseEntity) error {
	// WithContext 确保请求超时能传递到数据库层
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *expenseRepo) ListRecent(ctx context.Context, userID string, limit int) ([]model.ExpenseEntity, error) {
	var list []model.ExpenseEntity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *expenseRepo) ListAll(ctx context.Context, userID string) ([]model.ExpenseEntity, error) {
	var list []model.ExpenseEntity
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *expenseRepo) SumBetween(ctx context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	// 没有消费日期的记录按登记日期算
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&model.ExpenseEntity{}).
		Select("SUM(amount)").
		Where("user_id = ?", userID).
		Where("COALESCE(expense_date, DATE(created_at)) >= ? AND COALESCE(expense_date, DATE(created_at)) < ?",
			from.Format(model.DateLayout), to.Format(model.DateLayout)).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
