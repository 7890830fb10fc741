package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leon37/FinChatLedger/internal/api/middleware"
	"github.com/leon37/FinChatLedger/internal/api/response"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/leon37/FinChatLedger/internal/repository"
	"github.com/leon37/FinChatLedger/internal/service"
	"github.com/sirupsen/logrus"
)

type ExpenseController struct {
	service *service.ExpenseService // 依赖 Service
	log     *logrus.Logger
}

// NewExpenseController 构造函数
func NewExpenseController(s *service.ExpenseService, log *logrus.Logger) *ExpenseController {
	return &ExpenseController{service: s, log: logging.OrDefault(log)}
}

// ListRequest 列表请求参数
type ListRequest struct {
	Limit int `form:"limit,default=5"`
}

type ListResponse struct {
	List  []model.ExpenseEntity `json:"list"`
	Count int                   `json:"count"`
}

// List 最近的消费
// @Summary 获取最近的消费
// @Tags Expense
// @Produce json
// @Security BearerAuth
// @Param limit query int false "条数，默认 5，最多 50"
// @Success 200 {object} response.Response{data=controller.ListResponse}
// @Router /expenses [get]
func (ctrl *ExpenseController) List(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "参数错误")
		return
	}

	list, err := ctrl.service.ListRecent(c.Request.Context(), userID, req.Limit)
	if err != nil {
		ctrl.log.WithError(err).WithField(logging.FieldUserID, userID).Error("获取消费列表失败")
		response.Error(c, http.StatusInternalServerError, "获取列表失败")
		return
	}
	if list == nil {
		list = []model.ExpenseEntity{}
	}
	response.Success(c, ListResponse{List: list, Count: len(list)})
}

// Export 导出 CSV
// @Summary 导出全部消费 (CSV)
// @Tags Expense
// @Produce text/csv
// @Security BearerAuth
// @Router /expenses/export [get]
func (ctrl *ExpenseController) Export(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	filename := fmt.Sprintf("gastos-%s.csv", time.Now().Format("20060102"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	n, err := ctrl.service.ExportCSV(c.Request.Context(), userID, c.Writer)
	if err != nil {
		ctrl.log.WithError(err).WithField(logging.FieldUserID, userID).Error("导出 CSV 失败")
		if !c.Writer.Written() {
			response.Error(c, http.StatusInternalServerError, "导出失败")
		}
		return
	}
	ctrl.log.WithFields(logrus.Fields{logging.FieldUserID: userID, "rows": n}).Info("CSV 导出完成")
}

// Profile 用户资料
// @Summary 获取用户资料
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=model.UserProfile}
// @Router /profile [get]
func (ctrl *ExpenseController) Profile(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	profile, err := ctrl.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if repository.IsNotFound(err) {
			response.Error(c, http.StatusNotFound, "用户不存在")
			return
		}
		ctrl.log.WithError(err).WithField(logging.FieldUserID, userID).Error("获取用户资料失败")
		response.Error(c, http.StatusInternalServerError, "获取资料失败")
		return
	}
	response.Success(c, profile)
}
