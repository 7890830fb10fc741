package service

import (
	"context"
	"fmt"
	"time"

	"github.com/leon37/FinChatLedger/internal/infrastructure/llm"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/leon37/FinChatLedger/internal/repository"
	"github.com/sirupsen/logrus"
)

const (
	msgWelcome = "Olá! 👋 Sou seu assistente financeiro pessoal.\n\n" +
		"Para que eu possa te ajudar da melhor forma, primeiro preciso entender um pouco sobre você.\n\n" +
		"Para começar, poderia me informar sua *renda mensal aproximada*? (ex: 3000, 4500.50)"
	msgIncomeSaved = "Ótimo, renda anotada! ✅\n\n" +
		"Agora, me diga, qual é o seu *principal objetivo financeiro* no momento?\n\n" +
		"Exemplos: guardar dinheiro, começar a investir, criar uma reserva de emergência, etc."
	msgIncomeInvalid = "Hum, esse valor de renda não parece ser um número. 🤔\n" +
		"Poderia me informar sua renda mensal aproximada usando apenas números?"

	msgGoalRetry         = "Por favor, tente descrever seu objetivo novamente com um foco mais financeiro."
	msgGoalNotUnderstood = "Não entendi bem seu objetivo. Poderia tentar descrevê-lo de forma mais direta? (ex: 'guardar dinheiro para uma viagem')"
	msgGoalUnavailable   = "Desculpe, não consegui avaliar seu objetivo agora. Poderia enviá-lo novamente em instantes?"
	msgStorageFailure    = "Desculpe, tive um problema para salvar suas informações. Tente novamente em instantes."
)

// Onboarding 新用户引导：收入 -> 理财目标 -> 完成
type Onboarding struct {
	users   repository.UserRepo
	nl      llm.Provider
	timeout time.Duration
	log     *logrus.Logger
}

func NewOnboarding(users repository.UserRepo, nl llm.Provider, timeout time.Duration, log *logrus.Logger) *Onboarding {
	return &Onboarding{
		users:   users,
		nl:      nl,
		timeout: timeout,
		log:     logging.OrDefault(log),
	}
}

// Advance 把 text 当作当前步骤问题的回答，推进一步并返回回复。
// 输入无效时停留在当前步骤
func (o *Onboarding) Advance(ctx context.Context, profile *model.UserProfile, text string) string {
	entry := o.log.WithFields(logrus.Fields{
		logging.FieldUserID: profile.ID,
		logging.FieldStep:   profile.OnboardingStep,
	})

	switch profile.OnboardingStep {
	case model.StepWelcome:
		// 第一轮忽略用户输入
		if err := o.users.UpdateOnboardingStep(ctx, profile.ID, model.StepAwaitingIncome); err != nil {
			entry.WithError(err).Error("更新引导步骤失败")
			return msgStorageFailure
		}
		profile.OnboardingStep = model.StepAwaitingIncome
		return msgWelcome

	case model.StepAwaitingIncome:
		return o.handleIncome(ctx, profile, text, entry)

	case model.StepAwaitingGoal:
		return o.handleGoal(ctx, profile, text, entry)

	default:
		step := profile.OnboardingStep
		entry.Warn("未知的引导步骤，直接结束引导")
		if err := o.users.CompleteOnboarding(ctx, profile.ID); err != nil {
			entry.WithError(err).Error("结束引导失败")
		} else {
			profile.OnboardingComplete = true
			profile.OnboardingStep = model.StepComplete
		}
		return fmt.Sprintf("Passo de onboarding inesperado: '%s'. Como posso ajudar?", step)
	}
}

func (o *Onboarding) handleIncome(ctx context.Context, profile *model.UserProfile, text string, entry *logrus.Entry) string {
	income, err := ParseIncome(text)
	if err != nil {
		return msgIncomeInvalid
	}
	if err := o.users.UpdateMonthlyIncome(ctx, profile.ID, income); err != nil {
		entry.WithError(err).Error("保存收入失败")
		return msgStorageFailure
	}
	if err := o.users.UpdateOnboardingStep(ctx, profile.ID, model.StepAwaitingGoal); err != nil {
		entry.WithError(err).Error("更新引导步骤失败")
		return msgStorageFailure
	}
	profile.MonthlyIncome.Decimal = income
	profile.MonthlyIncome.Valid = true
	profile.OnboardingStep = model.StepAwaitingGoal
	return msgIncomeSaved
}

func (o *Onboarding) handleGoal(ctx context.Context, profile *model.UserProfile, text string, entry *logrus.Entry) string {
	nlCtx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	cmd, err := o.nl.EvaluateGoal(nlCtx, text)
	if err != nil {
		entry.WithError(err).Error("理财目标校验失败")
		return msgGoalUnavailable
	}

	eval, ok := cmd.(model.EvaluateGoal)
	if !ok {
		entry.WithField(logging.FieldIntent, model.IntentName(cmd)).Info("目标校验没有返回预期的工具调用")
		return msgGoalNotUnderstood
	}
	if !eval.Valid || eval.Reformulated == "" {
		if eval.Feedback == "" {
			return msgGoalNotUnderstood
		}
		return eval.Feedback + " " + msgGoalRetry
	}

	if err := o.users.UpdateFinancialGoal(ctx, profile.ID, eval.Reformulated); err != nil {
		entry.WithError(err).Error("保存理财目标失败")
		return msgStorageFailure
	}
	if err := o.users.CompleteOnboarding(ctx, profile.ID); err != nil {
		entry.WithError(err).Error("结束引导失败")
		return msgStorageFailure
	}
	goal := eval.Reformulated
	profile.FinancialGoal = &goal
	profile.OnboardingComplete = true
	profile.OnboardingStep = model.StepComplete
	entry.Info("引导完成")

	return fmt.Sprintf("Perfeito! Onboarding concluído. 👍\n\nSeu objetivo: *%s*\nSua renda: *%s*\n\n"+
		"Agora você já pode usar todas as funcionalidades. Como posso te ajudar hoje?",
		goal, formatMoney(profile.MonthlyIncome.Decimal))
}

// PendingQuestion 引导中途没识别出意图时，重复当前的问题
func PendingQuestion(step model.OnboardingStep) string {
	switch step {
	case model.StepAwaitingGoal:
		return "Ainda estou aguardando seu objetivo financeiro. Poderia me dizer qual é?"
	case model.StepAwaitingIncome:
		return "Ainda estou aguardando sua renda mensal. Poderia me informar?"
	default:
		return "Não entendi bem. Poderia tentar de outra forma?"
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
