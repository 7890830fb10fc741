package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/leon37/FinChatLedger/internal/repository"
)

// ExpenseCSVRow 导出 CSV 的一行
type ExpenseCSVRow struct {
	ID          uint   `csv:"id"`
	Date        string `csv:"date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Category    string `csv:"category"`
	CreatedAt   string `csv:"registered_at"`
}

// ExpenseService 管理接口用的只读查询 (列表、资料、导出)
type ExpenseService struct {
	repo  repository.ExpenseRepo
	users repository.UserRepo
	loc   *time.Location
}

// NewExpenseService 构造函数 (依赖注入)
func NewExpenseService(repo repository.ExpenseRepo, users repository.UserRepo, loc *time.Location) *ExpenseService {
	if loc == nil {
		loc = time.Local
	}
	return &ExpenseService{repo: repo, users: users, loc: loc}
}

// ListRecent 最近的消费，limit 规则与对话里的列表一致
func (s *ExpenseService) ListRecent(ctx context.Context, userID string, limit int) ([]model.ExpenseEntity, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.ListRecent(ctx, userID, limit)
}

// GetProfile 用户资料，不存在时返回 gorm.ErrRecordNotFound
func (s *ExpenseService) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return s.users.GetByID(ctx, userID)
}

// ExportCSV 把用户全部消费按时间正序写成 CSV
func (s *ExpenseService) ExportCSV(ctx context.Context, userID string, w io.Writer) (int, error) {
	list, err := s.repo.ListAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}

	rows := make([]*ExpenseCSVRow, 0, len(list))
	for i := range list {
		e := &list[i]
		date := e.CreatedAt.In(s.loc).Format(model.DateLayout)
		if e.ExpenseDate != nil {
			date = e.ExpenseDate.Format(model.DateLayout)
		}
		rows = append(rows, &ExpenseCSVRow{
			ID:          e.ID,
			Date:        date,
			Description: e.Description,
			Amount:      e.Amount.StringFixed(2),
			Category:    e.Category,
			CreatedAt:   e.CreatedAt.In(s.loc).Format(time.RFC3339),
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(rows), nil
}
