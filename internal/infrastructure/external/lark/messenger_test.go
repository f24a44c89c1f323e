package lark

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCreator struct {
	CreateFunc func(ctx context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error)
}

func (m *mockCreator) Create(ctx context.Context, req *larkim.CreateMessageReq, _ ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error) {
	return m.CreateFunc(ctx, req)
}

func TestMessenger_SendText(t *testing.T) {
	var captured *larkim.CreateMessageReq
	creator := &mockCreator{
		CreateFunc: func(_ context.Context, req *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
			captured = req
			id := "om_1"
			return &larkim.CreateMessageResp{Data: &larkim.CreateMessageRespData{MessageId: &id}}, nil
		},
	}
	m := NewMessengerWithCreator(creator, zap.NewNop())

	err := m.SendText(context.Background(), "kim@example.com", `needs "quotes"`+"\nand newline")
	require.NoError(t, err)
	require.NotNil(t, captured)
	require.NotNil(t, captured.Body)
	assert.Equal(t, "kim@example.com", *captured.Body.ReceiveId)
	assert.Equal(t, "text", *captured.Body.MsgType)

	var content map[string]string
	require.NoError(t, json.Unmarshal([]byte(*captured.Body.Content), &content))
	assert.Equal(t, `needs "quotes"`+"\nand newline", content["text"])
}

func TestMessenger_SendTextErrors(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		resp     *larkim.CreateMessageResp
		err      error
		wantIs   error
	}{
		{name: "empty identity", identity: "", wantIs: ErrEmptyIdentity},
		{name: "transport error", identity: "kim@example.com", err: errors.New("dial tcp")},
		{
			name:     "api failure",
			identity: "kim@example.com",
			resp:     &larkim.CreateMessageResp{CodeError: larkcore.CodeError{Code: 230001, Msg: "no permission"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			creator := &mockCreator{
				CreateFunc: func(context.Context, *larkim.CreateMessageReq) (*larkim.CreateMessageResp, error) {
					calls++
					return tt.resp, tt.err
				},
			}
			m := NewMessengerWithCreator(creator, zap.NewNop())

			err := m.SendText(context.Background(), tt.identity, "hello")
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
				assert.Equal(t, 0, calls)
			}
		})
	}
}

func TestConfig_IsConfigured(t *testing.T) {
	assert.False(t, Config{}.IsConfigured())
	assert.False(t, Config{AppID: "cli_x"}.IsConfigured())
	assert.True(t, Config{AppID: "cli_x", AppSecret: "s"}.IsConfigured())
}
