package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/partner-review/internal/application/port"
	"github.com/garyjia/partner-review/internal/domain/entity"
)

const (
	msgTypeText        = "text"
	msgTypeInteractive = "interactive"
)

const receiveIDTypeOpenID = "open_id"

// messageAPI is the part of the SDK IM message service the messenger calls
type messageAPI interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// messageCreator sends one message body. The built SDK request keeps its
// body private, so the body is the unit tests can inspect.
type messageCreator interface {
	create(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error)
}

type sdkMessages struct {
	api messageAPI
}

func (s sdkMessages) create(ctx context.Context, receiveIDType string, body *larkim.CreateMessageReqBody) (*larkim.CreateMessageResp, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(body).
		Build()
	return s.api.Create(ctx, req)
}

// Messenger implements port.MessageSender over Lark IM
type Messenger struct {
	messages messageCreator
	logger   *zap.Logger
}

// NewMessenger creates a new Lark message sender adapter
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return newMessenger(sdkMessages{api: client.GetClient().Im.Message}, logger)
}

func newMessenger(messages messageCreator, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: messages,
		logger:   logger,
	}
}

// SendMessage sends a text message to a user
func (m *Messenger) SendMessage(ctx context.Context, openID string, content string) error {
	if openID == "" {
		return fmt.Errorf("openID cannot be empty")
	}
	if content == "" {
		return fmt.Errorf("content cannot be empty")
	}

	text, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	if _, err := m.send(ctx, openID, msgTypeText, string(text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendCardMessage sends an interactive card to a user
func (m *Messenger) SendCardMessage(ctx context.Context, openID string, cardContent interface{}) error {
	if openID == "" {
		return fmt.Errorf("openID cannot be empty")
	}
	if cardContent == nil {
		return fmt.Errorf("cardContent cannot be nil")
	}

	cardJSON, err := json.Marshal(cardContent)
	if err != nil {
		return fmt.Errorf("failed to marshal card content: %w", err)
	}

	if _, err := m.send(ctx, openID, msgTypeInteractive, string(cardJSON)); err != nil {
		return fmt.Errorf("failed to send card message: %w", err)
	}
	return nil
}

func (m *Messenger) send(ctx context.Context, openID, msgType, content string) (string, error) {
	body := larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(openID).
		MsgType(msgType).
		Content(content).
		Build()

	resp, err := m.messages.create(ctx, receiveIDTypeOpenID, body)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", openID),
			zap.Error(err))
		return "", err
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", openID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return "", fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", openID),
		zap.String("msg_type", msgType))

	return messageID, nil
}

var cardTemplates = map[entity.Category]string{
	entity.CategoryInfo:    "blue",
	entity.CategorySuccess: "green",
	entity.CategoryWarning: "orange",
}

// NotificationCard renders a notification as a Lark interactive card
func NotificationCard(msg entity.Message) map[string]interface{} {
	template, ok := cardTemplates[msg.Category]
	if !ok {
		template = "grey"
	}

	return map[string]interface{}{
		"config": map[string]interface{}{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"template": template,
			"title":    map[string]interface{}{"tag": "plain_text", "content": msg.Title},
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag":  "div",
				"text": map[string]interface{}{"tag": "lark_md", "content": msg.Message},
			},
		},
	}
}

var _ port.MessageSender = (*Messenger)(nil)
