package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/leon37/FinChatLedger/internal/categorizer"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

var errStorage = errors.New("storage down")

// fakeUserRepo 内存版 UserRepo
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.UserProfile
	failGet bool
	failAll bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.UserProfile{}}
}

func (r *fakeUserRepo) put(u *model.UserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *fakeUserRepo) snapshot(id string) *model.UserProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *fakeUserRepo) GetOrCreate(_ context.Context, id, name string) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet {
		return nil, errStorage
	}
	u, ok := r.users[id]
	if !ok {
		if name == "" {
			name = model.DefaultDisplayName
		}
		u = &model.UserProfile{ID: id, DisplayName: name, OnboardingStep: model.StepWelcome}
		r.users[id] = u
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet {
		return nil, errStorage
	}
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) update(id string, fn func(u *model.UserProfile)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errStorage
	}
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(u)
	return nil
}

func (r *fakeUserRepo) UpdateOnboardingStep(_ context.Context, id string, step model.OnboardingStep) error {
	return r.update(id, func(u *model.UserProfile) { u.OnboardingStep = step })
}

func (r *fakeUserRepo) UpdateFinancialGoal(_ context.Context, id, goal string) error {
	return r.update(id, func(u *model.UserProfile) { u.FinancialGoal = &goal })
}

func (r *fakeUserRepo) UpdateMonthlyIncome(_ context.Context, id string, income decimal.Decimal) error {
	return r.update(id, func(u *model.UserProfile) {
		u.MonthlyIncome = decimal.NullDecimal{Decimal: income, Valid: true}
	})
}

func (r *fakeUserRepo) CompleteOnboarding(_ context.Context, id string) error {
	return r.update(id, func(u *model.UserProfile) {
		u.OnboardingComplete = true
		u.OnboardingStep = model.StepComplete
	})
}

func (r *fakeUserRepo) UpdateBudgetWarning(_ context.Context, id string, threshold int, month string) error {
	return r.update(id, func(u *model.UserProfile) {
		u.LastWarnedThreshold = threshold
		u.LastWarnedMonth = month
	})
}

// fakeExpenseRepo 内存版 ExpenseRepo
type fakeExpenseRepo struct {
	mu         sync.Mutex
	items      []model.ExpenseEntity
	nextID     uint
	failCreate bool
	failRead   bool
	now        func() time.Time
}

func newFakeExpenseRepo(now func() time.Time) *fakeExpenseRepo {
	return &fakeExpenseRepo{now: now}
}

func (r *fakeExpenseRepo) Create(_ context.Context, e *model.ExpenseEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errStorage
	}
	r.nextID++
	e.ID = r.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	r.items = append(r.items, *e)
	return nil
}

func (r *fakeExpenseRepo) ListRecent(_ context.Context, userID string, limit int) ([]model.ExpenseEntity, error) {
	all, err := r.ListAll(context.Background(), userID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeExpenseRepo) ListAll(_ context.Context, userID string) ([]model.ExpenseEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRead {
		return nil, errStorage
	}
	var out []model.ExpenseEntity
	for _, e := range r.items {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeExpenseRepo) SumBetween(_ context.Context, userID string, from, to time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failRead {
		return decimal.Zero, errStorage
	}
	total := decimal.Zero
	for i := range r.items {
		e := &r.items[i]
		if e.UserID != userID {
			continue
		}
		d := e.EffectiveDate()
		if !d.Before(from) && d.Before(to) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *fakeExpenseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// mockProvider 基于 testify/mock 的 NL 服务
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Understand(ctx context.Context, userText string) (model.Command, error) {
	args := m.Called(ctx, userText)
	cmd, _ := args.Get(0).(model.Command)
	return cmd, args.Error(1)
}

func (m *mockProvider) EvaluateGoal(ctx context.Context, userText string) (model.Command, error) {
	args := m.Called(ctx, userText)
	cmd, _ := args.Get(0).(model.Command)
	return cmd, args.Error(1)
}

// fixture 把所有组件按生产方式组装，时钟固定
type fixture struct {
	users      *fakeUserRepo
	expenses   *fakeExpenseRepo
	nl         *mockProvider
	pending    *PendingStore
	budget     *BudgetMonitor
	onboarding *Onboarding
	dispatcher *Dispatcher
	chat       *ChatService
	loc        *time.Location
	now        time.Time
}

func newFixture() *fixture {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2025, time.March, 18, 10, 30, 0, 0, loc)
	clock := func() time.Time { return now }

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		users:    newFakeUserRepo(),
		expenses: newFakeExpenseRepo(clock),
		nl:       &mockProvider{},
		pending:  NewPendingStore(),
		loc:      loc,
		now:      now,
	}
	f.budget = NewBudgetMonitor(f.users, f.expenses, loc, log)
	f.budget.now = clock
	f.onboarding = NewOnboarding(f.users, f.nl, time.Second, log)
	f.dispatcher = NewDispatcher(f.users, f.expenses, f.pending, f.budget, categorizer.Default(), f.onboarding, loc, log)
	f.dispatcher.now = clock
	f.chat = NewChatService(f.users, f.nl, f.dispatcher, f.pending, time.Second, log)
	return f
}

func (f *fixture) month() string {
	return f.now.Format(monthLayout)
}

// onboardedUser 已完成引导的用户，收入为 income
func (f *fixture) onboardedUser(id, income string) *model.UserProfile {
	u := &model.UserProfile{
		ID:                 id,
		DisplayName:        "Ana",
		OnboardingStep:     model.StepComplete,
		OnboardingComplete: true,
	}
	if income != "" {
		u.MonthlyIncome = decimal.NullDecimal{Decimal: decimal.RequireFromString(income), Valid: true}
	}
	f.users.put(u)
	return f.users.snapshot(id)
}

// addExpense 直接写入一笔本月的消费
func (f *fixture) addExpense(userID, amount string) {
	date := f.now
	_ = f.expenses.Create(context.Background(), newEntity(userID, amount, &date))
}

func newEntity(userID, amount string, date *time.Time) *model.ExpenseEntity {
	return &model.ExpenseEntity{
		UserID:      userID,
		Description: "seed",
		Amount:      decimal.RequireFromString(amount),
		Category:    model.FallbackCategory,
		ExpenseDate: date,
	}
}
