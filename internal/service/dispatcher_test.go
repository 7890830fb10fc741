package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_NilProfile(t *testing.T) {
	f := newFixture()
	reply := f.dispatcher.Respond(context.Background(), model.ConfirmOperation{}, "sim", "u1", nil)
	assert.Equal(t, msgNoProfile, reply)
}

func TestDispatcher_RegisterStagesWithKeywordCategory(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")

	cmd := model.RegisterExpense{Description: "almoço no restaurante", Amount: "150"}
	reply := f.dispatcher.Respond(context.Background(), cmd, "150 almoço no restaurante", "u1", p)

	assert.Contains(t, reply, "150.00")
	assert.Contains(t, reply, model.CategoryFood)
	assert.Contains(t, reply, "Certo? (sim/não/alterar)")
	assert.Contains(t, reply, "hoje (2025-03-18)")
	assert.Contains(t, reply, "usaremos data de hoje: 2025-03-18")

	s, ok := f.pending.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "almoço no restaurante", s.Description)
	assert.True(t, decimal.NewFromInt(150).Equal(s.Amount))
	assert.Equal(t, model.CategoryFood, s.Category)
	assert.Equal(t, "2025-03-18", s.Date)
	assert.True(t, s.DateDefaulted)
	assert.Equal(t, 0, f.expenses.count())
}

func TestDispatcher_RegisterCategoryAndDate(t *testing.T) {
	tests := []struct {
		name         string
		cmd          model.RegisterExpense
		wantCategory string
		wantDate     string
	}{
		{
			name:         "supplied category kept",
			cmd:          model.RegisterExpense{Description: "uber", Amount: "20", Category: model.CategoryLeisure},
			wantCategory: model.CategoryLeisure,
			wantDate:     "2025-03-18",
		},
		{
			name:         "fallback category inferred",
			cmd:          model.RegisterExpense{Description: "uber", Amount: "20", Category: "outros"},
			wantCategory: model.CategoryTransport,
			wantDate:     "2025-03-18",
		},
		{
			name:         "timestamp trimmed to date",
			cmd:          model.RegisterExpense{Description: "farmácia", Amount: "35,90", Date: "2025-03-17T09:00:00"},
			wantCategory: model.CategoryHealth,
			wantDate:     "2025-03-17",
		},
		{
			name:         "space separated timestamp",
			cmd:          model.RegisterExpense{Description: "cinema", Amount: "40", Date: "2025-03-16 20:00:00"},
			wantCategory: model.CategoryLeisure,
			wantDate:     "2025-03-16",
		},
		{
			name:         "day first date",
			cmd:          model.RegisterExpense{Description: "padaria", Amount: "12", Date: "15/03/2025"},
			wantCategory: model.CategoryFood,
			wantDate:     "2025-03-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := f.onboardedUser("u1", "3000")

			reply := f.dispatcher.Respond(context.Background(), tt.cmd, "", "u1", p)
			s, ok := f.pending.Get("u1")
			require.True(t, ok)
			assert.Equal(t, tt.wantCategory, s.Category)
			assert.Equal(t, tt.wantDate, s.Date)
			if tt.cmd.Date != "" {
				assert.False(t, s.DateDefaulted)
				assert.NotContains(t, reply, "usaremos data de hoje")
			}
		})
	}
}

func TestDispatcher_RegisterInvalidDateKeepsPrevious(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()
	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "uber", Amount: "20", Date: "2025-03-17"}, "", "u1", p)

	reply := f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "cinema", Amount: "40", Date: "ontem"}, "", "u1", p)

	assert.Equal(t, "A data 'ontem' não parece válida. Use o formato AAAA-MM-DD (ex: 2025-03-18). O gasto não foi registrado.", reply)
	s, ok := f.pending.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "uber", s.Description)
	assert.Equal(t, "2025-03-17", s.Date)
}

func TestDispatcher_RejectedDateEditDoesNotLoseConfirmedDate(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "cinema", Amount: "40", Date: "2025-03-14"}, "", "u1", p)
	reply := f.dispatcher.Respond(ctx, model.EditPendingExpense{Field: "data", Value: "ontem"}, "", "u1", p)
	assert.NotContains(t, reply, "Data: ontem")

	reply = f.dispatcher.Respond(ctx, model.ConfirmOperation{}, "sim", "u1", p)
	assert.Equal(t, "Confirmado! Gasto salvo com sucesso.", reply)

	list, err := f.expenses.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].ExpenseDate)
	assert.Equal(t, "2025-03-14", list[0].ExpenseDate.Format(model.DateLayout))
}

func TestDispatcher_RegisterHugeAmountRejected(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")

	reply := f.dispatcher.Respond(context.Background(), model.RegisterExpense{Description: "carro", Amount: "1e100000"}, "", "u1", p)

	assert.Equal(t, "Descrição 'carro', mas o valor '1e100000' parece inválido.", reply)
	assert.Less(t, len(reply), 200)
	_, ok := f.pending.Get("u1")
	assert.False(t, ok)
}

func TestDispatcher_RegisterMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		cmd      model.RegisterExpense
		expected string
	}{
		{"no amount", model.RegisterExpense{Description: "pizza"}, "Não identifiquei o valor do gasto."},
		{"no description", model.RegisterExpense{Amount: "30"}, "Não identifiquei a descrição do gasto."},
		{"nothing", model.RegisterExpense{}, "Não identifiquei o valor do gasto."},
		{"bad amount", model.RegisterExpense{Description: "pizza", Amount: "trinta"}, "Descrição 'pizza', mas o valor 'trinta' parece inválido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := f.onboardedUser("u1", "3000")
			reply := f.dispatcher.Respond(context.Background(), tt.cmd, "", "u1", p)
			assert.Equal(t, tt.expected, reply)
			assert.Zero(t, f.pending.Len())
		})
	}
}

func TestDispatcher_SecondRegistrationReplacesFirst(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "café", Amount: "8"}, "", "u1", p)
	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "gasolina", Amount: "200"}, "", "u1", p)

	assert.Equal(t, 1, f.pending.Len())
	s, _ := f.pending.Get("u1")
	assert.Equal(t, "gasolina", s.Description)
	assert.Equal(t, model.CategoryTransport, s.Category)
}

func TestDispatcher_ConfirmPersistsAndClears(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "mercado", Amount: "120.40", Date: "2025-03-10"}, "", "u1", p)
	reply := f.dispatcher.Respond(ctx, model.ConfirmOperation{}, "sim", "u1", p)

	assert.Equal(t, "Confirmado! Gasto salvo com sucesso.", reply)
	_, ok := f.pending.Get("u1")
	assert.False(t, ok)

	list, err := f.expenses.ListAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mercado", list[0].Description)
	assert.Equal(t, "120.40", list[0].Amount.StringFixed(2))
	assert.Equal(t, model.CategoryFood, list[0].Category)
	require.NotNil(t, list[0].ExpenseDate)
	assert.Equal(t, "2025-03-10", list[0].ExpenseDate.Format(model.DateLayout))
}

func TestDispatcher_ConfirmNothingPending(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	reply := f.dispatcher.Respond(context.Background(), model.ConfirmOperation{}, "sim", "u1", p)
	assert.Equal(t, "Não tenho nenhum gasto pendente para confirmar.", reply)
	assert.Zero(t, f.expenses.count())
}

func TestDispatcher_ConfirmStorageFailureKeepsStaged(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "pizza", Amount: "60"}, "", "u1", p)
	f.expenses.failCreate = true

	reply := f.dispatcher.Respond(ctx, model.ConfirmOperation{}, "sim", "u1", p)
	assert.Contains(t, reply, "ocorreu um erro ao salvar")

	s, ok := f.pending.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "pizza", s.Description)

	// 存储恢复后再确认一次即可
	f.expenses.failCreate = false
	reply = f.dispatcher.Respond(ctx, model.ConfirmOperation{}, "sim", "u1", p)
	assert.Equal(t, "Confirmado! Gasto salvo com sucesso.", reply)
	assert.Equal(t, 1, f.expenses.count())
}

func TestDispatcher_ConfirmAppendsBudgetWarning(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "1000")
	f.addExpense("u1", "900")
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "jantar", Amount: "50"}, "", "u1", p)
	reply := f.dispatcher.Respond(ctx, model.ConfirmOperation{}, "sim", "u1", p)

	assert.True(t, strings.HasPrefix(reply, "Confirmado! Gasto salvo com sucesso."))
	assert.Contains(t, reply, "*95%*")
	assert.Equal(t, 90, f.users.snapshot("u1").LastWarnedThreshold)
}

func TestDispatcher_ConfirmBudgetFailureStillConfirms(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "1000")
	f.users.failGet = true
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "jantar", Amount: "50"}, "", "u1", p)
	reply := f.dispatcher.Respond(ctx, model.ConfirmOperation{}, "sim", "u1", p)

	assert.Equal(t, "Confirmado! Gasto salvo com sucesso.", reply)
	assert.Equal(t, 1, f.expenses.count())
}

func TestDispatcher_Cancel(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "show", Amount: "150"}, "", "u1", p)
	reply := f.dispatcher.Respond(ctx, model.CancelOperation{}, "não", "u1", p)
	assert.Equal(t, "Ok, registro cancelado.", reply)
	assert.Zero(t, f.pending.Len())
	assert.Zero(t, f.expenses.count())

	reply = f.dispatcher.Respond(ctx, model.CancelOperation{}, "não", "u1", p)
	assert.Equal(t, "Ok, não havia nada pendente para cancelar.", reply)
}

func TestDispatcher_Edit(t *testing.T) {
	tests := []struct {
		name     string
		cmd      model.EditPendingExpense
		contains string
		check    func(t *testing.T, s model.StagedExpense)
	}{
		{
			name:     "description recategorizes",
			cmd:      model.EditPendingExpense{Field: "descricao", Value: "remédio"},
			contains: "Ok, alterado.",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "remédio", s.Description)
				assert.Equal(t, model.CategoryHealth, s.Category)
			},
		},
		{
			name:     "amount",
			cmd:      model.EditPendingExpense{Field: "Valor", Value: "30,50"},
			contains: "R$30.50",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "30.50", s.Amount.StringFixed(2))
			},
		},
		{
			name:     "invalid amount keeps value",
			cmd:      model.EditPendingExpense{Field: "valor", Value: "trinta"},
			contains: "'trinta' não é um valor válido. O gasto não foi alterado.",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "100.00", s.Amount.StringFixed(2))
			},
		},
		{
			name:     "category",
			cmd:      model.EditPendingExpense{Field: "categoria", Value: model.CategoryLeisure},
			contains: "Cat: " + model.CategoryLeisure,
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, model.CategoryLeisure, s.Category)
			},
		},
		{
			name:     "date",
			cmd:      model.EditPendingExpense{Field: "data", Value: "2025-03-01T12:00:00"},
			contains: "Data: 2025-03-01",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "2025-03-01", s.Date)
				assert.False(t, s.DateDefaulted)
			},
		},
		{
			name:     "day first date",
			cmd:      model.EditPendingExpense{Field: "date", Value: "01/03/2025"},
			contains: "Data: 2025-03-01",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "2025-03-01", s.Date)
			},
		},
		{
			name:     "invalid date keeps value",
			cmd:      model.EditPendingExpense{Field: "data", Value: "ontem"},
			contains: "'ontem' não é uma data válida (use AAAA-MM-DD). O gasto não foi alterado.",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "2025-03-18", s.Date)
				assert.True(t, s.DateDefaulted)
			},
		},
		{
			name:     "impossible date keeps value",
			cmd:      model.EditPendingExpense{Field: "data", Value: "2025-02-30"},
			contains: "não é uma data válida",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "2025-03-18", s.Date)
			},
		},
		{
			name:     "unknown field",
			cmd:      model.EditPendingExpense{Field: "cor", Value: "azul"},
			contains: "Não entendi qual campo ('cor') você quer alterar.",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "supermercado", s.Description)
			},
		},
		{
			name:     "no field asks what to change",
			cmd:      model.EditPendingExpense{},
			contains: "Quer alterar o quê no gasto pendente?",
			check: func(t *testing.T, s model.StagedExpense) {
				assert.Equal(t, "supermercado", s.Description)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := f.onboardedUser("u1", "3000")
			ctx := context.Background()
			f.dispatcher.Respond(ctx, model.RegisterExpense{Description: "supermercado", Amount: "100"}, "", "u1", p)

			reply := f.dispatcher.Respond(ctx, tt.cmd, "", "u1", p)
			assert.Contains(t, reply, tt.contains)

			s, ok := f.pending.Get("u1")
			require.True(t, ok)
			tt.check(t, s)
		})
	}
}

func TestDispatcher_EditNothingPending(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	reply := f.dispatcher.Respond(context.Background(), model.EditPendingExpense{Field: "valor", Value: "10"}, "", "u1", p)
	assert.Equal(t, "Não tenho nenhum gasto pendente para alterar.", reply)
}

func TestDispatcher_ListExpenses(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	reply := f.dispatcher.Respond(ctx, model.ListExpenses{}, "", "u1", p)
	assert.Equal(t, "Nenhum gasto registrado.", reply)

	day := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 7; i++ {
		e := newEntity("u1", "10", &day)
		e.Description = "item" + string(rune('0'+i))
		e.Category = model.CategoryFood
		require.NoError(t, f.expenses.Create(ctx, e))
	}
	// 没有消费日期、没有分类的记录
	require.NoError(t, f.expenses.Create(ctx, &model.ExpenseEntity{
		UserID: "u1", Description: "avulso", Amount: decimal.NewFromInt(5),
	}))

	reply = f.dispatcher.Respond(ctx, model.ListExpenses{}, "", "u1", p)
	lines := strings.Split(reply, "\n")
	require.Len(t, lines, 1+defaultListLimit)
	assert.Equal(t, "Últimos gastos registrados:", lines[0])
	assert.Equal(t, "- R$5.00 em 'avulso' (Data: 2025-03-18)", lines[1])
	assert.Equal(t, "- R$10.00 em 'item7' (Cat: Alimentação) (Data: 2025-03-02)", lines[2])

	reply = f.dispatcher.Respond(ctx, model.ListExpenses{Limit: 2}, "", "u1", p)
	assert.Len(t, strings.Split(reply, "\n"), 3)

	reply = f.dispatcher.Respond(ctx, model.ListExpenses{Limit: 500}, "", "u1", p)
	assert.Len(t, strings.Split(reply, "\n"), 9)
}

func TestDispatcher_ListStorageFailure(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	f.expenses.failRead = true
	reply := f.dispatcher.Respond(context.Background(), model.ListExpenses{}, "", "u1", p)
	assert.Contains(t, reply, "não consegui buscar seus gastos")
}

func TestDispatcher_AlterIncome(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	reply := f.dispatcher.Respond(ctx, model.AlterMonthlyIncome{NewIncome: "5000"}, "", "u1", p)
	assert.Equal(t, "Entendido! Sua renda mensal foi atualizada com sucesso para R$5000.00.", reply)
	assert.Equal(t, "5000", f.users.snapshot("u1").MonthlyIncome.Decimal.String())

	reply = f.dispatcher.Respond(ctx, model.AlterMonthlyIncome{}, "", "u1", p)
	assert.Contains(t, reply, "não consegui identificar o novo valor")

	reply = f.dispatcher.Respond(ctx, model.AlterMonthlyIncome{NewIncome: "muito"}, "", "u1", p)
	assert.Contains(t, reply, "alterar minha renda para 5000")
	assert.Equal(t, "5000", f.users.snapshot("u1").MonthlyIncome.Decimal.String())

	f.users.failAll = true
	reply = f.dispatcher.Respond(ctx, model.AlterMonthlyIncome{NewIncome: "7000"}, "", "u1", p)
	assert.Contains(t, reply, "Ocorreu um erro")
}

func TestDispatcher_QueryIncome(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	p := f.onboardedUser("u1", "4500.5")
	reply := f.dispatcher.Respond(ctx, model.QueryIncome{}, "", "u1", p)
	assert.Equal(t, "Sua renda mensal registrada atualmente é de R$4500.50.", reply)

	p = f.onboardedUser("u2", "")
	reply = f.dispatcher.Respond(ctx, model.QueryIncome{}, "", "u2", p)
	assert.Contains(t, reply, "Você ainda não registrou uma renda.")
}

func TestDispatcher_IncomeIntentsBeforeOnboarding(t *testing.T) {
	// dispatch 直接调用，跳过 Respond 里的引导分流
	tests := []struct {
		name string
		cmd  model.Command
	}{
		{"alter", model.AlterMonthlyIncome{NewIncome: "5000"}},
		{"query", model.QueryIncome{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p := newUserAt(f, "u1", model.StepAwaitingGoal)

			reply := f.dispatcher.dispatch(context.Background(), tt.cmd, "u1", p)

			assert.Contains(t, reply, "configuração inicial")
			assert.Equal(t, model.StepAwaitingIncome, f.users.snapshot("u1").OnboardingStep)
			assert.False(t, f.users.snapshot("u1").MonthlyIncome.Valid)
		})
	}
}

func TestDispatcher_UnresolvedBeforeOnboarding(t *testing.T) {
	f := newFixture()
	p := newUserAt(f, "u1", model.StepAwaitingGoal)
	reply := f.dispatcher.dispatch(context.Background(), nil, "u1", p)
	assert.Equal(t, PendingQuestion(model.StepAwaitingGoal), reply)
}

func TestDispatcher_TextAndUnknownIntents(t *testing.T) {
	f := newFixture()
	p := f.onboardedUser("u1", "3000")
	ctx := context.Background()

	reply := f.dispatcher.Respond(ctx, model.TextualResponse{Text: "Olá! Posso ajudar com seus gastos."}, "oi", "u1", p)
	assert.Equal(t, "Olá! Posso ajudar com seus gastos.", reply)

	reply = f.dispatcher.Respond(ctx, model.TextualResponse{}, "oi", "u1", p)
	assert.Equal(t, msgNotUnderstood, reply)

	reply = f.dispatcher.Respond(ctx, nil, "???", "u1", p)
	assert.Equal(t, msgNotUnderstood, reply)

	reply = f.dispatcher.Respond(ctx, model.UnsupportedIntent{Name: "delete_all"}, "", "u1", p)
	assert.Equal(t, "Entendi a intenção 'delete_all', mas ainda não estou programado para lidar com ela.", reply)

	reply = f.dispatcher.Respond(ctx, model.EvaluateGoal{Valid: true}, "", "u1", p)
	assert.Contains(t, reply, "'evaluate_financial_goal'")
}

func TestDispatcher_OnboardingIgnoresIntent(t *testing.T) {
	f := newFixture()
	p := newUserAt(f, "u1", model.StepAwaitingIncome)
	f.expenses.failRead = true

	reply := f.dispatcher.Respond(context.Background(), model.ListExpenses{}, "lista meus gastos", "u1", p)

	assert.Equal(t, msgIncomeInvalid, reply)
	assert.Equal(t, model.StepAwaitingIncome, f.users.snapshot("u1").OnboardingStep)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2025-01-02", normalizeDate("2025-01-02"))
	assert.Equal(t, "2025-01-02", normalizeDate(" 2025-01-02T10:00:00Z "))
	assert.Equal(t, "2025-01-02", normalizeDate("2025-01-02 10:00"))
	assert.Equal(t, "", normalizeDate(""))
	assert.Equal(t, "ontem", normalizeDate("ontem"))
}

func TestDispatcher_ParseDate(t *testing.T) {
	f := newFixture()
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"2025-03-01", "2025-03-01", false},
		{"2025-03-01T08:00:00Z", "2025-03-01", false},
		{"01/03/2025", "2025-03-01", false},
		{"ontem", "", true},
		{"2025-13-01", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := f.dispatcher.parseDate(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
