// Package whatsapp WhatsApp Cloud API 的 webhook 消息结构和发送客户端
package whatsapp

// ObjectBusinessAccount 只处理这个 object 类型的推送
const ObjectBusinessAccount = "whatsapp_business_account"

const (
	messagingProduct = "whatsapp"
	messageTypeText  = "text"
)

// WebhookPayload Meta 推送过来的事件
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string         `json:"wa_id"`
	Profile ContactProfile `json:"profile"`
}

type ContactProfile struct {
	Name string `json:"name"`
}

type Message struct {
	From      string    `json:"from"`
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *TextBody `json:"text,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

// TextMessage 从推送里提取出来的一条文本消息
type TextMessage struct {
	MessageID string
	From      string
	Name      string
	Body      string
}

// IsBusinessAccount 是否是 WhatsApp 业务账号的事件
func (p *WebhookPayload) IsBusinessAccount() bool {
	return p.Object == ObjectBusinessAccount
}

// TextMessages 按推送顺序返回所有文本消息，非文本或缺字段的消息放到 skipped
func (p *WebhookPayload) TextMessages() (texts []TextMessage, skipped []Message) {
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			v := change.Value
			if v.MessagingProduct != messagingProduct {
				continue
			}
			for _, m := range v.Messages {
				if m.Type != messageTypeText || m.Text == nil || m.Text.Body == "" || m.From == "" {
					skipped = append(skipped, m)
					continue
				}
				texts = append(texts, TextMessage{
					MessageID: m.ID,
					From:      m.From,
					Name:      v.contactName(m.From),
					Body:      m.Text.Body,
				})
			}
		}
	}
	return texts, skipped
}

// contactName 优先匹配 wa_id，找不到时用第一个联系人
func (v *Value) contactName(waID string) string {
	for _, c := range v.Contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	if len(v.Contacts) > 0 {
		return v.Contacts[0].Profile.Name
	}
	return ""
}
