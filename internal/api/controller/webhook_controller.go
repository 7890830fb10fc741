package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leon37/FinChatLedger/internal/api/middleware"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/infrastructure/whatsapp"
	"github.com/leon37/FinChatLedger/internal/service"
	"github.com/sirupsen/logrus"
)

// webhook 的响应体，Meta 只关心状态码
const (
	ackEventReceived = "EVENT_RECEIVED"
	ackNotWhatsApp   = "NOT_A_WHATSAPP_EVENT"
)

// ChatHandler 对话流水线
type ChatHandler interface {
	HandleMessage(ctx context.Context, msg service.InboundMessage) (*service.ChatResult, error)
}

// MessageSender 出站消息
type MessageSender interface {
	SendText(ctx context.Context, to, body string) (string, error)
}

// WebhookController WhatsApp Cloud API 的回调入口。
// POST 永远返回 200，避免 Meta 反复重推
type WebhookController struct {
	chat        ChatHandler
	sender      MessageSender
	verifyToken string
	appSecret   string
	log         *logrus.Logger
}

func NewWebhookController(chat ChatHandler, sender MessageSender, verifyToken, appSecret string, log *logrus.Logger) *WebhookController {
	return &WebhookController{
		chat:        chat,
		sender:      sender,
		verifyToken: verifyToken,
		appSecret:   appSecret,
		log:         logging.OrDefault(log),
	}
}

// Verify Meta 订阅 webhook 时的校验请求
func (ctrl *WebhookController) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		ctrl.log.Warn("webhook 校验请求缺少参数")
		c.String(http.StatusBadRequest, "Parâmetros faltando na requisição de verificação")
		return
	}
	if mode != "subscribe" || ctrl.verifyToken == "" || token != ctrl.verifyToken {
		ctrl.log.WithField("mode", mode).Warn("webhook 校验失败")
		c.String(http.StatusForbidden, "Token de verificação não confere ou modo inválido")
		return
	}

	ctrl.log.Info("webhook 校验成功")
	c.String(http.StatusOK, challenge)
}

// Receive 处理推送过来的消息
func (ctrl *WebhookController) Receive(c *gin.Context) {
	entry := ctrl.log.WithField(logging.FieldRequestID, c.GetString(middleware.ContextRequestID))

	// 任何 panic 都转成 200，错误只进日志
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", fmt.Sprint(r)).Error("处理 webhook 时发生 panic")
			c.String(http.StatusOK, ackEventReceived)
		}
	}()

	// 1. 读原始请求体，签名要对原始字节计算
	body, err := c.GetRawData()
	if err != nil {
		entry.WithError(err).Error("读取 webhook 请求体失败")
		c.String(http.StatusOK, ackEventReceived)
		return
	}

	// 2. 配置了 App Secret 才校验签名
	if ctrl.appSecret != "" && !whatsapp.VerifySignature(ctrl.appSecret, body, c.GetHeader(whatsapp.SignatureHeader)) {
		entry.Warn("webhook 签名校验失败，忽略该请求")
		c.String(http.StatusOK, ackEventReceived)
		return
	}

	// 3. 解析
	var payload whatsapp.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		entry.WithError(err).Warn("webhook 请求体不是合法 JSON")
		c.String(http.StatusOK, ackEventReceived)
		return
	}
	if !payload.IsBusinessAccount() {
		entry.WithField("object", payload.Object).Info("不是 WhatsApp 业务账号事件")
		c.String(http.StatusOK, ackNotWhatsApp)
		return
	}

	texts, skipped := payload.TextMessages()
	for _, m := range skipped {
		entry.WithFields(logrus.Fields{
			logging.FieldUserID:    m.From,
			logging.FieldMessageID: m.ID,
			"type":                 m.Type,
		}).Info("忽略非文本消息")
	}

	// 4. 按顺序逐条处理，请求断开也要处理完
	ctx := context.WithoutCancel(c.Request.Context())
	for _, msg := range texts {
		ctrl.handle(ctx, entry, msg)
	}

	c.String(http.StatusOK, ackEventReceived)
}

func (ctrl *WebhookController) handle(ctx context.Context, entry *logrus.Entry, msg whatsapp.TextMessage) {
	entry = entry.WithFields(logrus.Fields{
		logging.FieldUserID:    msg.From,
		logging.FieldMessageID: msg.MessageID,
	})

	res, err := ctrl.chat.HandleMessage(ctx, service.InboundMessage{
		UserID: msg.From,
		Name:   msg.Name,
		Text:   msg.Body,
	})
	if err != nil {
		entry.WithError(err).Error("处理消息失败")
		return
	}
	if res == nil || res.Reply == "" {
		entry.Info("没有生成回复")
		return
	}

	// 发送失败只记录，不重试
	if _, err := ctrl.sender.SendText(ctx, msg.From, res.Reply); err != nil {
		entry.WithError(err).Error("发送 WhatsApp 回复失败")
		return
	}
	entry.WithField(logging.FieldIntent, res.Intent).Info("回复已发送")
}
