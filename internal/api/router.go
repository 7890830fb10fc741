package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leon37/FinChatLedger/internal/api/controller"
	"github.com/leon37/FinChatLedger/internal/api/middleware"
)

// Controllers 路由需要的全部 controller
type Controllers struct {
	Webhook *controller.WebhookController
	Chat    *controller.ChatController
	Expense *controller.ExpenseController
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, ctrls Controllers, tokens middleware.TokenParser) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// WhatsApp 回调，鉴权靠 verify token 和签名
	wa := r.Group("/whatsapp")
	{
		wa.GET("/webhook", ctrls.Webhook.Verify)
		wa.POST("/webhook", ctrls.Webhook.Receive)
	}

	// 管理 API 组
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(tokens))
	{
		protected.POST("/chat/messages", ctrls.Chat.Send)
		protected.GET("/expenses", ctrls.Expense.List)
		protected.GET("/expenses/export", ctrls.Expense.Export)
		protected.GET("/profile", ctrls.Expense.Profile)
	}
}
