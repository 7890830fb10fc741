package llm

import (
	"github.com/leon37/FinChatLedger/internal/model"
)

type paramType string

const (
	paramString  paramType = "string"
	paramNumber  paramType = "number"
	paramInteger paramType = "integer"
	paramBoolean paramType = "boolean"
)

type paramSpec struct {
	Name        string
	Type        paramType
	Description string
	Enum        []string
}

// toolSpec 与具体 SDK 无关的工具描述，OpenAI 和 Gemini 各自转换
type toolSpec struct {
	Intent      model.Intent
	Description string
	Params      []paramSpec
	Required    []string
}

// 工具参数名
const (
	argDescription  = "description"
	argAmount       = "amount"
	argCategory     = "category"
	argDate         = "date"
	argLimit        = "limit"
	argPeriod       = "period"
	argField        = "field"
	argNewValue     = "new_value"
	argNewIncome    = "new_income"
	argIsValid      = "is_valid"
	argReformulated = "reformulated_goal"
	argFeedback     = "feedback"
)

// EditableFields 待确认消费可以修改的字段
var EditableFields = []string{"descricao", "valor", "categoria", "data"}

// buildToolSpecs 动态生成全部工具定义
// categories: 预定义分类，作为 category 参数的提示
func buildToolSpecs(categories []string) []toolSpec {
	return []toolSpec{
		{
			Intent:      model.IntentRegisterExpense,
			Description: "Registra uma nova despesa informada pelo usuário. Extrai a descrição, o valor, a categoria e, opcionalmente, a data do gasto.",
			Params: []paramSpec{
				{Name: argDescription, Type: paramString, Description: "Descrição curta do gasto, sem valor nem data."},
				{Name: argAmount, Type: paramNumber, Description: "Valor numérico do gasto."},
				{Name: argCategory, Type: paramString, Enum: categories, Description: "Categoria do gasto. Use 'Outros' se não tiver certeza."},
				{Name: argDate, Type: paramString, Description: "Data do gasto (YYYY-MM-DD), inferida a partir da data atual ('ontem' etc). Opcional."},
			},
			Required: []string{argDescription, argAmount, argCategory},
		},
		{
			Intent:      model.IntentListExpenses,
			Description: "Lista os gastos registrados anteriormente pelo usuário.",
			Params: []paramSpec{
				{Name: argLimit, Type: paramInteger, Description: "Opcional. Número máximo de gastos a listar."},
				{Name: argPeriod, Type: paramString, Description: "Opcional. Período desejado."},
			},
		},
		{
			Intent:      model.IntentConfirm,
			Description: "O usuário confirma a operação pendente (ex: 'sim', 'ok', 'correto').",
		},
		{
			Intent:      model.IntentCancel,
			Description: "O usuário cancela a operação pendente (ex: 'não', 'cancela', 'errado').",
		},
		{
			Intent:      model.IntentEditPending,
			Description: "O usuário quer modificar o gasto pendente. Pode dizer só 'alterar' ou indicar campo e novo valor, como 'alterar valor para 50'.",
			Params: []paramSpec{
				{Name: argField, Type: paramString, Enum: EditableFields, Description: "Campo a alterar."},
				{Name: argNewValue, Type: paramString, Description: "Novo valor do campo."},
			},
		},
		{
			Intent:      model.IntentAlterIncome,
			Description: "O usuário quer atualizar a renda mensal registrada ('minha renda mudou para X').",
			Params: []paramSpec{
				{Name: argNewIncome, Type: paramNumber, Description: "Novo valor da renda mensal. Opcional."},
			},
		},
		{
			Intent:      model.IntentQueryIncome,
			Description: "O usuário quer saber a renda mensal registrada.",
		},
		goalToolSpec(),
	}
}

func goalToolSpec() toolSpec {
	return toolSpec{
		Intent:      model.IntentEvaluateGoal,
		Description: "Avalia se o texto do usuário é um objetivo financeiro direto e acionável.",
		Params: []paramSpec{
			{Name: argIsValid, Type: paramBoolean, Description: "true se o objetivo for financeiro e acionável."},
			{Name: argReformulated, Type: paramString, Description: "O objetivo reescrito de forma clara e financeira."},
			{Name: argFeedback, Type: paramString, Description: "Se inválido, uma explicação breve e amigável para o usuário."},
		},
		Required: []string{argIsValid, argReformulated},
	}
}
