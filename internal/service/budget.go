package service

import (
	"context"
	"fmt"
	"time"

	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BudgetThresholds 提醒档位 (收入的百分比)，必须从高到低排列
var BudgetThresholds = []int{100, 90, 80, 75, 70, 60, 50}

const monthLayout = "2006-01"

var hundred = decimal.NewFromInt(100)

// BudgetWarning 一次新触发的预算提醒
type BudgetWarning struct {
	Threshold int
	Percent   decimal.Decimal
	Income    decimal.Decimal
	Spent     decimal.Decimal
}

// Message 追加在确认回复后面的提醒文本，百分比按银行家舍入取整 (72.5 -> 72)
func (w *BudgetWarning) Message() string {
	return fmt.Sprintf("\n\n*Atenção!* 🔔\nVocê já comprometeu *%s%%* da sua renda de %s este mês (Total gasto: %s).",
		w.Percent.RoundBank(0).String(), formatMoney(w.Income), formatMoney(w.Spent))
}

// BudgetMonitor 计算本月支出占收入的比例，判断是否越过新的档位
type BudgetMonitor struct {
	users    repository.UserRepo
	expenses repository.ExpenseRepo
	loc      *time.Location
	now      func() time.Time
	log      *logrus.Logger
}

func NewBudgetMonitor(users repository.UserRepo, expenses repository.ExpenseRepo, loc *time.Location, log *logrus.Logger) *BudgetMonitor {
	if loc == nil {
		loc = time.Local
	}
	return &BudgetMonitor{
		users:    users,
		expenses: expenses,
		loc:      loc,
		now:      time.Now,
		log:      logging.OrDefault(log),
	}
}

// Check 没有新档位时返回 nil, nil。
// 触发时先写入水位线再返回提醒，同一档位一个月只提醒一次
func (m *BudgetMonitor) Check(ctx context.Context, userID string) (*BudgetWarning, error) {
	// 1. 没有收入就无法计算比例
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !user.HasIncome() {
		return nil, nil
	}
	income := user.MonthlyIncome.Decimal

	// 2. 本月累计支出
	now := m.now().In(m.loc)
	from, to := monthRange(now)
	spent, err := m.expenses.SumBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum month expenses: %w", err)
	}

	// 3. 从高到低找第一个越过且未提醒过的档位
	percent := spent.Mul(hundred).Div(income)
	month := now.Format(monthLayout)
	warned := user.WarnedThresholdFor(month)

	for _, t := range BudgetThresholds {
		if percent.LessThan(decimal.NewFromInt(int64(t))) || warned >= t {
			continue
		}
		if err := m.users.UpdateBudgetWarning(ctx, userID, t, month); err != nil {
			return nil, fmt.Errorf("save budget watermark: %w", err)
		}
		m.log.WithFields(logrus.Fields{
			logging.FieldUserID:    userID,
			logging.FieldThreshold: t,
			"percent":              percent.StringFixed(1),
		}).Info("预算提醒触发")
		return &BudgetWarning{Threshold: t, Percent: percent, Income: income, Spent: spent}, nil
	}
	return nil, nil
}

// monthRange 返回 now 所在月份的 [月初, 下月初)
func monthRange(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}
