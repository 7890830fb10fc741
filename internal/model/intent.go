package model

// Intent 是 NL 服务识别出的动作名，同时也是工具 (function) 的名字
type Intent string

const (
	IntentRegisterExpense Intent = "register_expense"
	IntentListExpenses    Intent = "list_expenses"
	IntentConfirm         Intent = "confirm_operation"
	IntentCancel          Intent = "cancel_operation"
	IntentEditPending     Intent = "request_expense_edit"
	IntentAlterIncome     Intent = "alter_monthly_income"
	IntentQueryIncome     Intent = "query_income"
	IntentEvaluateGoal    Intent = "evaluate_financial_goal"
	IntentTextualResponse Intent = "textual_response"
)

// KnownIntents 对话里可以出现的全部工具
var KnownIntents = []Intent{
	IntentRegisterExpense, IntentListExpenses, IntentConfirm, IntentCancel,
	IntentEditPending, IntentAlterIncome, IntentQueryIncome, IntentEvaluateGoal,
}

// Command 是 NL 服务解析结果的强类型形式，每个意图一个结构体。
// nil 表示没有识别出任何意图。
type Command interface {
	Intent() Intent
}

// RegisterExpense 记一笔消费。字段为空表示模型没有给出
type RegisterExpense struct {
	Description string
	// Amount 保留原始文本，交给对话层做数字校验
	Amount   string
	Category string
	Date     string
}

func (RegisterExpense) Intent() Intent { return IntentRegisterExpense }

// ListExpenses 列出最近的消费，Limit 为 0 表示使用默认值
type ListExpenses struct {
	Limit int
}

func (ListExpenses) Intent() Intent { return IntentListExpenses }

type ConfirmOperation struct{}

func (ConfirmOperation) Intent() Intent { return IntentConfirm }

type CancelOperation struct{}

func (CancelOperation) Intent() Intent { return IntentCancel }

// EditPendingExpense 修改待确认消费的某个字段
type EditPendingExpense struct {
	Field string
	Value string
}

func (EditPendingExpense) Intent() Intent { return IntentEditPending }

// AlterMonthlyIncome NewIncome 为空表示没有识别出新值
type AlterMonthlyIncome struct {
	NewIncome string
}

func (AlterMonthlyIncome) Intent() Intent { return IntentAlterIncome }

type QueryIncome struct{}

func (QueryIncome) Intent() Intent { return IntentQueryIncome }

// EvaluateGoal 理财目标校验结果
type EvaluateGoal struct {
	Valid        bool
	Reformulated string
	Feedback     string
}

func (EvaluateGoal) Intent() Intent { return IntentEvaluateGoal }

// TextualResponse 模型没有调用工具，直接回了一段话
type TextualResponse struct {
	Text string
}

func (TextualResponse) Intent() Intent { return IntentTextualResponse }

// UnsupportedIntent 模型调用了一个我们不处理的工具
type UnsupportedIntent struct {
	Name string
}

func (u UnsupportedIntent) Intent() Intent { return Intent(u.Name) }

// IntentName 便于日志输出，nil 返回空串
func IntentName(cmd Command) string {
	if cmd == nil {
		return ""
	}
	return string(cmd.Intent())
}
