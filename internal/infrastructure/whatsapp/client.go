package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leon37/FinChatLedger/internal/infrastructure/logging"
	"github.com/sirupsen/logrus"
)

// ErrNotConfigured access token 或 phone number id 没有配置
var ErrNotConfigured = errors.New("whatsapp client not configured")

const DefaultBaseURL = "https://graph.facebook.com"

// Client 通过 Graph API 给用户发送文本消息
type Client struct {
	baseURL       string
	version       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
	log           *logrus.Logger
}

func NewClient(baseURL, version, phoneNumberID, accessToken string, timeout time.Duration, log *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		version:       version,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		http:          &http.Client{Timeout: timeout},
		log:           logging.OrDefault(log),
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             TextBody `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// SendText 发送一条文本，返回 WhatsApp 的消息 id。
// 响应里没有消息 id 也视为失败
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	if c.accessToken == "" || c.phoneNumberID == "" {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(sendRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             messageTypeText,
		Text:             TextBody{Body: body},
	})
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.version, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out sendResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil {
			return "", fmt.Errorf("graph api status %d: %s (code %d)", resp.StatusCode, out.Error.Message, out.Error.Code)
		}
		return "", fmt.Errorf("graph api status %d: %s", resp.StatusCode, string(raw))
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", fmt.Errorf("unexpected graph api response: %s", string(raw))
	}

	id := out.Messages[0].ID
	c.log.WithFields(logrus.Fields{
		logging.FieldUserID:    to,
		logging.FieldMessageID: id,
	}).Debug("WhatsApp 消息已发送")
	return id, nil
}
