package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// receiveIDType addresses users by the e-mail bound to their Lark account,
// which is also the identity carried through the approval workflow.
const (
	receiveIDType = "email"
	msgTypeText   = "text"
)

// ErrEmptyIdentity is returned when a message has no recipient
var ErrEmptyIdentity = errors.New("lark: identity cannot be empty")

// MessageCreator is the slice of the IM API the messenger needs
type MessageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Messenger implements port.ChatMessenger over the Lark IM API
type Messenger struct {
	messages MessageCreator
	logger   *zap.Logger
}

// NewMessenger creates a messenger backed by the SDK client
func NewMessenger(client *SDKClient, logger *zap.Logger) *Messenger {
	return NewMessengerWithCreator(client.GetClient().Im.Message, logger)
}

// NewMessengerWithCreator creates a messenger over any MessageCreator
func NewMessengerWithCreator(messages MessageCreator, logger *zap.Logger) *Messenger {
	return &Messenger{
		messages: messages,
		logger:   logger,
	}
}

// SendText sends a plain text message to identity
func (m *Messenger) SendText(ctx context.Context, identity string, text string) error {
	if identity == "" {
		return ErrEmptyIdentity
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal text content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(identity).
			MsgType(msgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := m.messages.Create(ctx, req)
	if err != nil {
		m.logger.Error("Failed to send message",
			zap.String("receive_id", identity),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		m.logger.Error("API returned failure",
			zap.String("receive_id", identity),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}

	m.logger.Debug("Message sent",
		zap.String("message_id", messageID),
		zap.String("receive_id", identity))

	return nil
}
