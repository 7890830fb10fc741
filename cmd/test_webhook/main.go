package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/leon37/FinChatLedger/internal/infrastructure/whatsapp"
)

// 模拟 Meta 推送一条文本消息到本地 webhook
func main() {
	url := flag.String("url", "http://localhost:8080/whatsapp/webhook", "webhook 地址")
	from := flag.String("from", "5511999999999", "发送者号码")
	name := flag.String("name", "Teste", "联系人名字")
	text := flag.String("text", "gastei 50 no uber", "消息内容")
	secret := flag.String("secret", os.Getenv("FINCHAT_WHATSAPP_APP_SECRET"), "App Secret，非空时附带签名")
	flag.Parse()

	payload := whatsapp.WebhookPayload{
		Object: whatsapp.ObjectBusinessAccount,
		Entry: []whatsapp.Entry{{
			ID: "WABA_TEST",
			Changes: []whatsapp.Change{{
				Field: "messages",
				Value: whatsapp.Value{
					MessagingProduct: "whatsapp",
					Contacts: []whatsapp.Contact{{WaID: *from, Profile: whatsapp.ContactProfile{Name: *name}}},
					Messages: []whatsapp.Message{{
						From:      *from,
						ID:        fmt.Sprintf("wamid.test.%d", time.Now().UnixNano()),
						Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
						Type:      "text",
						Text:      &whatsapp.TextBody{Body: *text},
					}},
				},
			}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Println("序列化失败:", err)
		os.Exit(1)
	}

	// 1. 发起 POST 请求
	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
	if err != nil {
		fmt.Println("构造请求失败:", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if *secret != "" {
		req.Header.Set(whatsapp.SignatureHeader, whatsapp.Sign(*secret, body))
	}

	client := &http.Client{Timeout: time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("请求失败:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	// 2. 回复是异步通过 Graph API 发出的，这里只能看到 ack
	ack, _ := io.ReadAll(resp.Body)
	fmt.Printf("✅ %d %s\n", resp.StatusCode, string(ack))
	fmt.Println("回复内容见服务端日志 (intent / reply)")
}
