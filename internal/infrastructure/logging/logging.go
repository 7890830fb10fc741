// Package logging 构建全局使用的 logrus 实例
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// 日志字段名，保持各处一致方便检索
const (
	FieldUserID    = "user_id"
	FieldIntent    = "intent"
	FieldStep      = "step"
	FieldThreshold = "threshold"
	FieldMessageID = "message_id"
	FieldRequestID = "request_id"
)

// New 根据级别和格式 (text/json) 创建 logger，级别无效时用 info
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Warnf("Invalid log level '%s', using 'info'", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// OrDefault nil 时返回 logrus 标准 logger
func OrDefault(log *logrus.Logger) *logrus.Logger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
