package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/p-n-ai/pai-classroom/internal/notify"
)

func TestNewGateway(t *testing.T) {
	gw := notify.NewGateway()
	if gw == nil {
		t.Fatal("NewGateway() returned nil")
	}
}

func TestGateway_RegisterChannel(t *testing.T) {
	gw := notify.NewGateway()
	gw.Register(notify.ChannelEmail, &notify.MockChannel{})

	if !gw.HasChannel(notify.ChannelEmail) {
		t.Error("HasChannel(email) should be true after Register")
	}
	if gw.HasChannel("sms") {
		t.Error("HasChannel(sms) should be false when not registered")
	}
}

func TestGateway_Send(t *testing.T) {
	gw := notify.NewGateway()
	mock := &notify.MockChannel{}
	gw.Register(notify.ChannelEmail, mock)

	err := gw.Send(context.Background(), notify.Message{
		Channel: notify.ChannelEmail,
		To:      "ali@example.com",
		Subject: "Verify",
		Text:    "Hello!",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	sent := mock.Messages()
	if len(sent) != 1 {
		t.Fatalf("Sent = %d, want 1", len(sent))
	}
	if sent[0].To != "ali@example.com" {
		t.Errorf("To = %q, want ali@example.com", sent[0].To)
	}
}

func TestGateway_Send_UnknownChannel(t *testing.T) {
	gw := notify.NewGateway()

	err := gw.Send(context.Background(), notify.Message{Channel: "sms"})
	if err == nil {
		t.Fatal("Send() to unknown channel should return error")
	}
}

func TestGateway_Send_ChannelError(t *testing.T) {
	gw := notify.NewGateway()
	gw.Register(notify.ChannelEmail, &notify.MockChannel{Err: errors.New("quota")})

	if err := gw.Send(context.Background(), notify.Message{Channel: notify.ChannelEmail}); err == nil {
		t.Fatal("Send() should surface channel error")
	}
}

func TestLogChannel_Send(t *testing.T) {
	if err := (notify.LogChannel{}).Send(context.Background(), notify.Message{To: "x"}); err != nil {
		t.Errorf("LogChannel.Send() error = %v", err)
	}
}

func TestNewSendGridChannel(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		from    string
		wantErr bool
	}{
		{"valid", "SG.key", "no-reply@classroom.local", false},
		{"no-key", "", "no-reply@classroom.local", true},
		{"no-from", "SG.key", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := notify.NewSendGridChannel(tt.key, tt.from, "Classroom")
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSendGridChannel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSendGridChannel_EmptyRecipient(t *testing.T) {
	ch, err := notify.NewSendGridChannel("SG.key", "no-reply@classroom.local", "Classroom")
	if err != nil {
		t.Fatalf("NewSendGridChannel() error = %v", err)
	}
	if err := ch.Send(context.Background(), notify.Message{}); err == nil {
		t.Fatal("Send() with empty recipient should return error")
	}
}
