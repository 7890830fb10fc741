package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leon37/FinChatLedger/internal/categorizer"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/leon37/FinChatLedger/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	defaultListLimit = 5
	maxListLimit     = 50
)

// dateLayoutBR 用户常用的 DD/MM/YYYY
const dateLayoutBR = "02/01/2006"

const (
	msgNoProfile     = "Desculpe, estou com um problema para acessar suas informações. Tente novamente mais tarde."
	msgNotUnderstood = "Desculpe, não entendi o que você quis dizer. Pode tentar de outra forma?"
	msgFinishFirst   = "Vamos primeiro concluir sua configuração inicial. Por favor, me informe sua renda mensal para continuarmos."
)

// Dispatcher 根据意图生成回复，并处理暂存、落库和预算提醒
type Dispatcher struct {
	users       repository.UserRepo
	expenses    repository.ExpenseRepo
	pending     *PendingStore
	budget      *BudgetMonitor
	categorizer *categorizer.Categorizer
	onboarding  *Onboarding
	loc         *time.Location
	now         func() time.Time
	log         *logrus.Logger
}

func NewDispatcher(
	users repository.UserRepo,
	expenses repository.ExpenseRepo,
	pending *PendingStore,
	budget *BudgetMonitor,
	cat *categorizer.Categorizer,
	onboarding *Onboarding,
	loc *time.Location,
	log *logrus.Logger,
) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	if cat == nil {
		cat = categorizer.Default()
	}
	return &Dispatcher{
		users:       users,
		expenses:    expenses,
		pending:     pending,
		budget:      budget,
		categorizer: cat,
		onboarding:  onboarding,
		loc:         loc,
		now:         time.Now,
		log:         logging.OrDefault(log),
	}
}

// Respond 生成这一轮的回复。
// 引导未完成时 cmd 被忽略，rawText 作为当前引导问题的回答
func (d *Dispatcher) Respond(ctx context.Context, cmd model.Command, rawText, userID string, profile *model.UserProfile) string {
	if profile == nil {
		d.log.WithField(logging.FieldUserID, userID).Error("没有用户资料，无法处理消息")
		return msgNoProfile
	}
	if !profile.OnboardingComplete {
		return d.onboarding.Advance(ctx, profile, rawText)
	}
	return d.dispatch(ctx, cmd, userID, profile)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmd model.Command, userID string, profile *model.UserProfile) string {
	switch c := cmd.(type) {
	case model.RegisterExpense:
		return d.registerExpense(userID, c)
	case model.ConfirmOperation:
		return d.confirm(ctx, userID)
	case model.CancelOperation:
		if d.pending.Clear(userID) {
			return "Ok, registro cancelado."
		}
		return "Ok, não havia nada pendente para cancelar."
	case model.EditPendingExpense:
		return d.editPending(userID, c)
	case model.ListExpenses:
		return d.listExpenses(ctx, userID, c.Limit)
	case model.AlterMonthlyIncome:
		return d.alterIncome(ctx, userID, profile, c)
	case model.QueryIncome:
		return d.queryIncome(ctx, userID, profile)
	case model.TextualResponse:
		if c.Text != "" {
			return c.Text
		}
		return d.unresolved(profile)
	case nil:
		return d.unresolved(profile)
	default:
		return fmt.Sprintf("Entendi a intenção '%s', mas ainda não estou programado para lidar com ela.", model.IntentName(cmd))
	}
}

// unresolved 正常流程里引导未完成的消息在 Respond 就交给了 Onboarding，
// 这里的引导分支只在直接调用 dispatch 时兜底
func (d *Dispatcher) unresolved(profile *model.UserProfile) string {
	if !profile.OnboardingComplete {
		return PendingQuestion(profile.OnboardingStep)
	}
	return msgNotUnderstood
}

// registerExpense 解析金额、补全分类和日期后暂存，等待用户确认
func (d *Dispatcher) registerExpense(userID string, c model.RegisterExpense) string {
	if c.Amount == "" {
		return "Não identifiquei o valor do gasto."
	}
	if c.Description == "" {
		return "Não identifiquei a descrição do gasto."
	}
	amount, err := ParseAmount(c.Amount)
	if err != nil {
		return fmt.Sprintf("Descrição '%s', mas o valor '%s' parece inválido.", c.Description, c.Amount)
	}

	today := d.now().In(d.loc).Format(model.DateLayout)
	var date string
	if strings.TrimSpace(c.Date) != "" {
		if date, err = d.parseDate(c.Date); err != nil {
			return fmt.Sprintf("A data '%s' não parece válida. Use o formato AAAA-MM-DD (ex: %s). O gasto não foi registrado.", c.Date, today)
		}
	}

	staged := model.StagedExpense{
		Description: c.Description,
		Amount:      amount,
		Category:    d.resolveCategory(c.Category, c.Description),
		Date:        date,
	}
	shownDate := staged.Date
	if staged.Date == "" {
		staged.Date = today
		staged.DateDefaulted = true
		shownDate = fmt.Sprintf("hoje (%s)", today)
	}
	d.pending.Stage(userID, staged)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Registrando:\n- Desc: %s\n- Valor: %s\n- Cat: %s\n- Data: %s\n",
		staged.Description, formatMoney(staged.Amount), staged.Category, shownDate)
	if staged.DateDefaulted {
		fmt.Fprintf(&sb, "(Como não especificou a data, usaremos data de hoje: %s).\n", today)
	}
	sb.WriteString("\nCerto? (sim/não/alterar)")
	return sb.String()
}

// resolveCategory "Outros" 与没给分类同等对待，交给关键词分类器
func (d *Dispatcher) resolveCategory(supplied, description string) string {
	if model.IsFallbackCategory(supplied) {
		return d.categorizer.Categorize(description)
	}
	return strings.TrimSpace(supplied)
}

// confirm 落库成功后才清空暂存，保存失败时用户可以直接再确认一次
func (d *Dispatcher) confirm(ctx context.Context, userID string) string {
	staged, ok := d.pending.Get(userID)
	if !ok {
		return "Não tenho nenhum gasto pendente para confirmar."
	}

	entity := staged.ToEntity(userID, d.loc)
	if err := d.expenses.Create(ctx, entity); err != nil {
		d.log.WithError(err).WithField(logging.FieldUserID, userID).Error("保存消费失败")
		return "Ok, mas ocorreu um erro ao salvar. Por favor, tente confirmar novamente."
	}
	d.pending.Clear(userID)

	reply := "Confirmado! Gasto salvo com sucesso."
	warning, err := d.budget.Check(ctx, userID)
	if err != nil {
		// 提醒失败不影响已经保存的消费
		d.log.WithError(err).WithField(logging.FieldUserID, userID).Warn("预算检查失败")
		return reply
	}
	if warning != nil {
		reply += warning.Message()
	}
	return reply
}

func (d *Dispatcher) editPending(userID string, c model.EditPendingExpense) string {
	current, ok := d.pending.Get(userID)
	if !ok {
		return "Não tenho nenhum gasto pendente para alterar."
	}
	if c.Field == "" || c.Value == "" {
		return fmt.Sprintf("Quer alterar o quê no gasto pendente?\n(Desc: %s, Valor: %s, Cat: %s, Data: %s)\nDiga, ex: 'alterar valor para 30'.",
			current.Description, formatMoney(current.Amount), current.Category, current.Date)
	}

	updated, err := d.pending.Update(userID, func(s *model.StagedExpense) error {
		return d.applyEdit(s, c.Field, c.Value)
	})
	switch {
	case errors.Is(err, ErrInvalidNumber):
		return fmt.Sprintf("'%s' não é um valor válido. O gasto não foi alterado.", c.Value)
	case errors.Is(err, ErrInvalidDate):
		return fmt.Sprintf("'%s' não é uma data válida (use AAAA-MM-DD). O gasto não foi alterado.", c.Value)
	case errors.Is(err, ErrUnknownField):
		return fmt.Sprintf("Não entendi qual campo ('%s') você quer alterar.", c.Field)
	case errors.Is(err, ErrNothingPending):
		return "Não tenho nenhum gasto pendente para alterar."
	case err != nil:
		d.log.WithError(err).WithField(logging.FieldUserID, userID).Error("修改待确认消费失败")
		return "Desculpe, não consegui alterar o gasto agora."
	}

	return fmt.Sprintf("Ok, alterado. Gasto atualizado:\n- Desc: %s\n- Valor: %s\n- Cat: %s\n- Data: %s\n\nCerto agora? (sim/alterar/cancelar)",
		updated.Description, formatMoney(updated.Amount), updated.Category, updated.Date)
}

// applyEdit 按字段名的子串匹配要修改的字段
func (d *Dispatcher) applyEdit(s *model.StagedExpense, field, value string) error {
	f := strings.ToLower(strings.TrimSpace(field))
	switch {
	case strings.Contains(f, "desc"):
		s.Description = value
		s.Category = d.categorizer.Categorize(value)
	case strings.Contains(f, "valor"), strings.Contains(f, "amount"), strings.Contains(f, "value"):
		amount, err := ParseAmount(value)
		if err != nil {
			return err
		}
		s.Amount = amount
	case strings.Contains(f, "categ"):
		s.Category = value
	case strings.Contains(f, "data"), strings.Contains(f, "date"):
		date, err := d.parseDate(value)
		if err != nil {
			return err
		}
		s.Date = date
		s.DateDefaulted = false
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

func (d *Dispatcher) listExpenses(ctx context.Context, userID string, limit int) string {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	list, err := d.expenses.ListRecent(ctx, userID, limit)
	if err != nil {
		d.log.WithError(err).WithField(logging.FieldUserID, userID).Error("查询消费列表失败")
		return "Desculpe, não consegui buscar seus gastos agora. Tente novamente mais tarde."
	}
	if len(list) == 0 {
		return "Nenhum gasto registrado."
	}

	var sb strings.Builder
	sb.WriteString("Últimos gastos registrados:")
	for i := range list {
		e := &list[i]
		catInfo := ""
		if e.Category != "" {
			catInfo = fmt.Sprintf(" (Cat: %s)", e.Category)
		}
		fmt.Fprintf(&sb, "\n- %s em '%s'%s (Data: %s)", formatMoney(e.Amount), e.Description, catInfo, d.displayDate(e))
	}
	return sb.String()
}

// displayDate 消费日期本身就是日历日，登记时间要先转到业务时区
func (d *Dispatcher) displayDate(e *model.ExpenseEntity) string {
	if e.ExpenseDate != nil {
		return e.ExpenseDate.Format(model.DateLayout)
	}
	return e.CreatedAt.In(d.loc).Format(model.DateLayout)
}

func (d *Dispatcher) alterIncome(ctx context.Context, userID string, profile *model.UserProfile, c model.AlterMonthlyIncome) string {
	if !profile.OnboardingComplete {
		d.restartIncomeStep(ctx, userID, profile)
		return msgFinishFirst
	}
	if c.NewIncome == "" {
		return "Entendi que você quer alterar sua renda, mas não consegui identificar o novo valor. Poderia tentar de novo, por exemplo: 'alterar minha renda para 5000'?"
	}
	income, err := ParseIncome(c.NewIncome)
	if err != nil {
		return fmt.Sprintf("O valor '%s' não parece ser uma renda válida. Poderia tentar de novo, por exemplo: 'alterar minha renda para 5000'?", c.NewIncome)
	}
	if err := d.users.UpdateMonthlyIncome(ctx, userID, income); err != nil {
		d.log.WithError(err).WithField(logging.FieldUserID, userID).Error("更新收入失败")
		return "Ocorreu um erro ao tentar atualizar sua renda. Tente novamente mais tarde."
	}
	profile.MonthlyIncome.Decimal = income
	profile.MonthlyIncome.Valid = true
	return fmt.Sprintf("Entendido! Sua renda mensal foi atualizada com sucesso para %s.", formatMoney(income))
}

func (d *Dispatcher) queryIncome(ctx context.Context, userID string, profile *model.UserProfile) string {
	if !profile.OnboardingComplete {
		d.restartIncomeStep(ctx, userID, profile)
		return "Para que eu possa te informar sua renda, primeiro precisamos concluir sua configuração inicial. Por favor, me diga sua renda mensal para continuarmos."
	}
	if !profile.MonthlyIncome.Valid {
		return "Você ainda não registrou uma renda. Para fazer isso, diga 'alterar minha renda para [valor]'."
	}
	return fmt.Sprintf("Sua renda mensal registrada atualmente é de %s.", formatMoney(profile.MonthlyIncome.Decimal))
}

// restartIncomeStep 引导没完成却问到收入相关的事，退回到填写收入的步骤
func (d *Dispatcher) restartIncomeStep(ctx context.Context, userID string, profile *model.UserProfile) {
	if err := d.users.UpdateOnboardingStep(ctx, userID, model.StepAwaitingIncome); err != nil {
		d.log.WithError(err).WithField(logging.FieldUserID, userID).Error("重置引导步骤失败")
		return
	}
	profile.OnboardingStep = model.StepAwaitingIncome
}

// parseDate 校验日期并统一成 YYYY-MM-DD，也接受 DD/MM/YYYY
func (d *Dispatcher) parseDate(raw string) (string, error) {
	s := normalizeDate(raw)
	for _, layout := range []string{model.DateLayout, dateLayoutBR} {
		if t, err := time.ParseInLocation(layout, s, d.loc); err == nil {
			return t.Format(model.DateLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// normalizeDate 模型偶尔返回完整时间戳，只保留日期部分
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	if len(s) > len(model.DateLayout) && s[len(model.DateLayout)] == ' ' {
		return s[:len(model.DateLayout)]
	}
	return s
}
