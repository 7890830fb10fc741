package service

import "errors"

var (
	// ErrInvalidNumber 金额或收入无法解析成数字
	ErrInvalidNumber = errors.New("invalid number")
	// ErrInvalidDate 日期不是 YYYY-MM-DD 或 DD/MM/YYYY
	ErrInvalidDate = errors.New("invalid date")
	// ErrNothingPending 用户没有待确认的消费
	ErrNothingPending = errors.New("nothing pending")
	// ErrUnknownField 修改请求里的字段名无法识别
	ErrUnknownField = errors.New("unknown field")
	// ErrEmptyUserID 入站消息缺少用户标识
	ErrEmptyUserID = errors.New("empty user id")
)
