package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leon37/FinChatLedger/internal/api"
	"github.com/leon37/FinChatLedger/internal/api/controller"
	"github.com/leon37/FinChatLedger/internal/api/middleware"
	"github.com/leon37/FinChatLedger/internal/infrastructure/whatsapp"
	"github.com/leon37/FinChatLedger/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务 (WhatsApp webhook + 管理 API)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	c, err := build(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	cfg, log := c.cfg, c.log

	if cfg.WhatsApp.VerifyToken == "" {
		log.Warn("whatsapp.verify_token 未配置，webhook 订阅校验会一直失败")
	}
	if cfg.JWT.Secret == "" {
		log.Warn("jwt.secret 未配置，管理 API 不可用")
	}

	sender := whatsapp.NewClient(
		cfg.WhatsApp.BaseURL,
		cfg.WhatsApp.GraphAPIVersion,
		cfg.WhatsApp.PhoneNumberID,
		cfg.WhatsApp.AccessToken,
		cfg.WhatsAppTimeout(),
		log,
	)

	gin.SetMode(ginMode(cfg.Server.Mode))
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Cors(cfg.Server.CORSOrigins))

	api.RegisterRoutes(r, api.Controllers{
		Webhook: controller.NewWebhookController(c.chat, sender, cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AppSecret, log),
		Chat:    controller.NewChatController(c.chat, log),
		Expense: controller.NewExpenseController(c.expenses, log),
	}, c.tokens)

	srv := &http.Server{Addr: cfg.Server.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("FinChat Web Server 启动中")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("收到退出信号，正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "只执行建表迁移",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := loadBase()
			if err != nil {
				return err
			}
			db, err := openDB(cfg, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			log.Info("数据库迁移完成")
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "为某个用户签发管理 API 的 JWT",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadBase()
			if err != nil {
				return err
			}
			tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
			token, expiresAt, err := tokens.IssueToken(userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires at %s\n", token, expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "用户标识 (WhatsApp 号码)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// newChatCmd 本地命令行对话，走和 webhook 相同的流水线
func newChatCmd() *cobra.Command {
	var userID, name string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "在终端里模拟一个 WhatsApp 用户",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := build(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()
			// 终端里只看回复
			c.log.SetLevel(logrus.WarnLevel)
			return chatLoop(cmd.Context(), c.chat, userID, name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "5500000000000", "用户标识")
	cmd.Flags().StringVar(&name, "name", "Terminal", "显示名")
	return cmd
}

func chatLoop(ctx context.Context, chat controller.ChatHandler, userID, name string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "输入消息，/quit 退出")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			return nil
		}

		res, err := chat.HandleMessage(ctx, service.InboundMessage{UserID: userID, Name: name, Text: text})
		if err != nil {
			fmt.Fprintln(out, "错误:", err)
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n", res.Intent, res.Reply)
	}
}
