package llm

import (
	"fmt"
	"time"
)

// understandPrompt 对话意图识别的系统提示词
func understandPrompt(now time.Time, categories string) string {
	return fmt.Sprintf(`Você é um assistente financeiro pessoal no WhatsApp. Data atual: %s.
Seu objetivo principal é ajudar o usuário chamando uma das funções (tools) disponíveis.
Categorias conhecidas: %s.
Se nenhuma função servir ou o pedido for vago, responda diretamente em português do Brasil pedindo mais contexto de forma amigável.
Exemplo: "Não entendi. Você quer registrar um gasto ou alterar sua renda?"`,
		now.Format("2006-01-02 (Monday)"), categories)
}

const goalPrompt = `Você avalia objetivos financeiros informados durante o cadastro.
Chame evaluate_financial_goal. Considere válido apenas um objetivo financeiro direto e acionável
(guardar dinheiro, investir, quitar dívidas, reserva de emergência...).
Se for inválido, explique de forma breve e amigável em português do Brasil no campo feedback.`
