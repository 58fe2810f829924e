package irisfast

import (
	"context"
	"strings"
)

// Message 는 Iris WS 로 들어오는 채팅 이벤트
type Message struct {
	Msg    string       `json:"msg"`
	Room   string       `json:"room"`
	Sender *string      `json:"sender,omitempty"`
	JSON   *MessageJSON `json:"json,omitempty"`
}

// MessageJSON 은 원본 카카오 이벤트 중 봇이 쓰는 필드
type MessageJSON struct {
	UserID    string `json:"user_id"`
	ChatID    string `json:"chat_id,omitempty"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// UserID 는 JSON.user_id, 없으면 sender 를 돌려준다.
func (m *Message) UserID() string {
	if m == nil {
		return ""
	}
	if m.JSON != nil && strings.TrimSpace(m.JSON.UserID) != "" {
		return strings.TrimSpace(m.JSON.UserID)
	}
	if m.Sender != nil {
		return strings.TrimSpace(*m.Sender)
	}
	return ""
}

// SenderName 은 표시용 이름. 비어 있으면 fallback.
func (m *Message) SenderName(fallback string) string {
	if m != nil && m.Sender != nil && strings.TrimSpace(*m.Sender) != "" {
		return strings.TrimSpace(*m.Sender)
	}
	if id := m.UserID(); id != "" {
		return id
	}
	return fallback
}

type Config struct {
	BotName           string `json:"bot_name,omitempty"`
	Port              int    `json:"bot_http_port,omitempty"`
	PollingSpeed      int    `json:"db_polling_rate,omitempty"`
	MessageRate       int    `json:"message_send_rate,omitempty"`
	WebserverEndpoint string `json:"web_server_endpoint,omitempty"`
}

type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

// ImageReplyRequest 의 Data 는 base64 PNG
type ImageReplyRequest = ReplyRequest

type DecryptRequest struct {
	Data string `json:"data"`
}

type DecryptResponse struct {
	Decrypted string `json:"decrypted"`
}

type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

type WSClient interface {
	Connect(ctx context.Context) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}

var _ WSClient = (*WebSocket)(nil)
