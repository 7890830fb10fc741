package service

import (
	"context"
	"strings"
	"time"

	"github.com/leon37/FinChatLedger/internal/infrastructure/llm"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/leon37/FinChatLedger/internal/repository"
	"github.com/sirupsen/logrus"
)

const msgUnavailable = "Desculpe, não consegui processar seu pedido agora. Tente novamente em instantes."

// InboundMessage 一条来自用户的文本消息 (WhatsApp、管理接口或命令行)
type InboundMessage struct {
	UserID string
	Name   string
	Text   string
}

// ChatResult 这一轮的回复
type ChatResult struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent,omitempty"`
	// Onboarding 这一轮由引导流程处理
	Onboarding bool `json:"onboarding"`
}

// ChatService 完整的对话流水线：取资料 -> 引导或 NL 理解 -> 分发
type ChatService struct {
	users      repository.UserRepo
	nl         llm.Provider
	dispatcher *Dispatcher
	pending    *PendingStore
	timeout    time.Duration
	log        *logrus.Logger
}

func NewChatService(users repository.UserRepo, nl llm.Provider, dispatcher *Dispatcher, pending *PendingStore, timeout time.Duration, log *logrus.Logger) *ChatService {
	return &ChatService{
		users:      users,
		nl:         nl,
		dispatcher: dispatcher,
		pending:    pending,
		timeout:    timeout,
		log:        logging.OrDefault(log),
	}
}

// HandleMessage 处理一条消息。
// 只有入参不合法时返回 error，其余失败都变成给用户的道歉回复
func (s *ChatService) HandleMessage(ctx context.Context, msg InboundMessage) (*ChatResult, error) {
	userID := strings.TrimSpace(msg.UserID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	text := strings.TrimSpace(msg.Text)
	entry := s.log.WithField(logging.FieldUserID, userID)

	// 1. 同一用户的消息串行处理，避免两条消息同时改暂存
	unlock := s.pending.Lock(userID)
	defer unlock()

	// 2. 取用户资料，第一次联系时创建
	profile, err := s.users.GetOrCreate(ctx, userID, msg.Name)
	if err != nil {
		entry.WithError(err).Error("获取用户资料失败")
		return &ChatResult{Reply: msgNoProfile}, nil
	}

	// 3. 引导没完成时不调用 NL 服务，原文就是答案
	if !profile.OnboardingComplete {
		reply := s.dispatcher.Respond(ctx, nil, text, userID, profile)
		entry.WithField(logging.FieldStep, profile.OnboardingStep).Debug("引导流程已回复")
		return &ChatResult{Reply: reply, Onboarding: true}, nil
	}

	// 4. NL 理解，超时兜底
	cmd, err := s.understand(ctx, text)
	if err != nil {
		entry.WithError(err).Error("NL 服务调用失败")
		return &ChatResult{Reply: msgUnavailable}, nil
	}

	intent := model.IntentName(cmd)
	entry.WithField(logging.FieldIntent, intent).Info("识别到意图")

	// 5. 分发
	reply := s.dispatcher.Respond(ctx, cmd, text, userID, profile)
	return &ChatResult{Reply: reply, Intent: intent}, nil
}

func (s *ChatService) understand(ctx context.Context, text string) (model.Command, error) {
	nlCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	return s.nl.Understand(nlCtx, text)
}
