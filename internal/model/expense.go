package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout 消费日期在对话和数据库之间传递的格式
const DateLayout = "2006-01-02"

// ExpenseEntity 是映射数据库表的结构体，写入后不再修改
type ExpenseEntity struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      string          `gorm:"type:varchar(32);index;not null" json:"user_id"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Category    string          `gorm:"type:varchar(64)" json:"category"`
	ExpenseDate *time.Time      `gorm:"type:date" json:"expense_date,omitempty"`

	// 系统登记时间
	CreatedAt time.Time `json:"created_at"`
}

// TableName 强制指定表名
func (ExpenseEntity) TableName() string {
	return "expenses"
}

// EffectiveDate 有消费日期用消费日期，否则用登记日期
func (e *ExpenseEntity) EffectiveDate() time.Time {
	if e.ExpenseDate != nil {
		return *e.ExpenseDate
	}
	return e.CreatedAt
}

// StagedExpense 等待用户确认的消费，只存在内存里
type StagedExpense struct {
	Description string
	Amount      decimal.Decimal
	Category    string
	// Date 原样保存为 YYYY-MM-DD 字符串，落库时再解析
	Date string
	// DateDefaulted 用户没有说日期，使用了当天
	DateDefaulted bool
}

// ToEntity 转换成待落库的实体。日期解析失败时留空，由登记时间兜底
func (s StagedExpense) ToEntity(userID string, loc *time.Location) *ExpenseEntity {
	entity := &ExpenseEntity{
		UserID:      userID,
		Description: s.Description,
		Amount:      s.Amount,
		Category:    s.Category,
	}
	if loc == nil {
		loc = time.Local
	}
	if d, err := time.ParseInLocation(DateLayout, s.Date, loc); err == nil {
		entity.ExpenseDate = &d
	}
	return entity
}
