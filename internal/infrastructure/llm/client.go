package llm

import (
	"context"

	"github.com/leon37/FinChatLedger/internal/model"
)

// Provider 定义了 NL 理解服务的通用行为
type Provider interface {
	// Understand 把用户的一句话解析成意图和参数。
	// 返回 nil Command 表示模型既没有调用工具也没有给出文本
	Understand(ctx context.Context, userText string) (model.Command, error)

	// EvaluateGoal 强制模型调用 evaluate_financial_goal 校验理财目标
	EvaluateGoal(ctx context.Context, userText string) (model.Command, error)
}
