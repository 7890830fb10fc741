package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leon37/FinChatLedger/internal/api/middleware"
	"github.com/leon37/FinChatLedger/internal/api/response"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/service"
	"github.com/sirupsen/logrus"
)

// ChatController 不经过 WhatsApp，直接以 token 对应的用户身份对话 (调试用)
type ChatController struct {
	chat ChatHandler
	log  *logrus.Logger
}

func NewChatController(chat ChatHandler, log *logrus.Logger) *ChatController {
	return &ChatController{chat: chat, log: logging.OrDefault(log)}
}

// ChatMessageRequest 定义前端传来的 JSON 参数结构
type ChatMessageRequest struct {
	Text string `json:"text" binding:"required"`
	Name string `json:"name"`
}

// Send 发送一条消息
// @Summary 模拟一条用户消息
// @Description 走完整的对话流程 (引导、意图识别、分发)，直接返回回复
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChatMessageRequest true "消息内容"
// @Success 200 {object} response.Response{data=service.ChatResult}
// @Router /chat/messages [post]
func (ctrl *ChatController) Send(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	res, err := ctrl.chat.HandleMessage(c.Request.Context(), service.InboundMessage{
		UserID: userID,
		Name:   req.Name,
		Text:   req.Text,
	})
	if err != nil {
		ctrl.log.WithError(err).WithField(logging.FieldUserID, userID).Error("处理消息失败")
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	response.Success(c, res)
}
