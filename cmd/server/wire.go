package main

import (
	"context"
	"fmt"

	"github.com/leon37/FinChatLedger/internal/categorizer"
	"github.com/leon37/FinChatLedger/internal/config"
	"github.com/leon37/FinChatLedger/internal/infrastructure/database"
	"github.com/leon37/FinChatLedger/internal/infrastructure/llm"
	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/leon37/FinChatLedger/internal/repository"
	"github.com/leon37/FinChatLedger/internal/service"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// components 组装好的依赖
type components struct {
	cfg      *config.Config
	log      *logrus.Logger
	db       *gorm.DB
	chat     *service.ChatService
	expenses *service.ExpenseService
	tokens   *service.TokenService
	closers  []func() error
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.WithError(err).Warn("释放资源失败")
		}
	}
}

// loadBase 读配置并初始化日志
func loadBase() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("无法加载配置: %w", err)
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

// openDB 连接数据库并自动建表
func openDB(cfg *config.Config, log *logrus.Logger) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn 未配置")
	}
	db, err := database.NewMySQLConnection(cfg.Database.DSN, cfg.Database.LogLevel, log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// newProvider 按 llm.provider 选择实现
func newProvider(ctx context.Context, cfg *config.Config, categories []string, log *logrus.Logger) (llm.Provider, func() error, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		g, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, categories, log)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		d := llm.NewDeepSeekClient(cfg.DeepSeek.APIKey, cfg.DeepSeek.BaseURL, cfg.DeepSeek.Model, categories, log)
		return d, func() error { return nil }, nil
	}
}

// build 依赖注入，顺序: infra -> repository -> service
func build(ctx context.Context) (*components, error) {
	// 1. 配置与日志
	cfg, log, err := loadBase()
	if err != nil {
		return nil, err
	}
	c := &components{cfg: cfg, log: log}

	// 2. Infra
	db, err := openDB(cfg, log)
	if err != nil {
		return nil, err
	}
	c.db = db
	if sqlDB, err := db.DB(); err == nil {
		c.closers = append(c.closers, sqlDB.Close)
	}

	cat, err := categorizer.LoadFile(cfg.App.CategoriesFile)
	if err != nil {
		c.Close()
		return nil, err
	}

	nl, closeNL, err := newProvider(ctx, cfg, cat.Categories(), log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("初始化 LLM 失败: %w", err)
	}
	c.closers = append(c.closers, closeNL)

	// 3. Repository
	users := repository.NewUserRepository(db)
	expenses := repository.NewExpenseRepo(db)

	// 4. Service
	loc := cfg.Location()
	pending := service.NewPendingStore()
	budget := service.NewBudgetMonitor(users, expenses, loc, log)
	onboarding := service.NewOnboarding(users, nl, cfg.LLMTimeout(), log)
	dispatcher := service.NewDispatcher(users, expenses, pending, budget, cat, onboarding, loc, log)

	c.chat = service.NewChatService(users, nl, dispatcher, pending, cfg.LLMTimeout(), log)
	c.expenses = service.NewExpenseService(expenses, users, loc)
	c.tokens = service.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	log.WithFields(logrus.Fields{
		"provider":   cfg.LLM.Provider,
		"categories": len(cat.Categories()),
		"timezone":   loc.String(),
	}).Info("依赖初始化完成")
	return c, nil
}
