package llm

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/leon37/FinChatLedger/internal/model"
)

// DecodeCommand 把工具名和参数表转换成强类型的 Command。
// 缺失或类型不对的参数一律当作没给，不会报错
func DecodeCommand(name string, args map[string]any) model.Command {
	switch model.Intent(name) {
	case model.IntentRegisterExpense:
		return model.RegisterExpense{
			Description: argString(args, argDescription),
			Amount:      argString(args, argAmount),
			Category:    argString(args, argCategory),
			Date:        argString(args, argDate),
		}
	case model.IntentListExpenses:
		return model.ListExpenses{Limit: argInt(args, argLimit)}
	case model.IntentConfirm:
		return model.ConfirmOperation{}
	case model.IntentCancel:
		return model.CancelOperation{}
	case model.IntentEditPending:
		return model.EditPendingExpense{
			Field: argString(args, argField),
			Value: argString(args, argNewValue),
		}
	case model.IntentAlterIncome:
		return model.AlterMonthlyIncome{NewIncome: argString(args, argNewIncome)}
	case model.IntentQueryIncome:
		return model.QueryIncome{}
	case model.IntentEvaluateGoal:
		return model.EvaluateGoal{
			Valid:        argBool(args, argIsValid),
			Reformulated: argString(args, argReformulated),
			Feedback:     argString(args, argFeedback),
		}
	case "":
		return nil
	default:
		return model.UnsupportedIntent{Name: name}
	}
}

// decodeJSONArguments OpenAI 的参数是 JSON 字符串
func decodeJSONArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return map[string]any{}
	}
	return args
}

func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func argInt(args map[string]any, key string) int {
	switch val := args[key].(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(val)
	case int:
		return val
	case int64:
		return int(val)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return i
		}
	}
	return 0
}

func argBool(args map[string]any, key string) bool {
	switch val := args[key].(type) {
	case bool:
		return val
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(val))
		return b
	}
	return false
}
