package notify

import (
	"context"
	"encoding/base64"
	"testing"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Studio Concierge" {
		t.Errorf("expected default from name 'Studio Concierge', got %q", sender.fromName)
	}
}

func TestNewSendGridSender_CustomFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
		FromName:  "Custom Name",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "Custom Name" {
		t.Errorf("expected from name 'Custom Name', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{
		client: nil,
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test",
		Body:    "Test body",
	})

	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})

	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

func TestSendGridSender_BuildMessageWithAttachment(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "studio@example.com",
	}, nil)

	msg := sender.buildMessage(EmailMessage{
		To:      "owner@example.com",
		ReplyTo: "jane@example.com",
		Subject: "New appointment request",
		Body:    "plain",
		Attachments: []Attachment{{
			Filename:    "appointment.ics",
			ContentType: "text/calendar",
			Content:     []byte("BEGIN:VCALENDAR"),
		}},
	})

	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "appointment.ics" || att.Type != "text/calendar" || att.Disposition != "attachment" {
		t.Errorf("unexpected attachment %+v", att)
	}
	if att.Content != base64.StdEncoding.EncodeToString([]byte("BEGIN:VCALENDAR")) {
		t.Errorf("attachment content not base64 encoded: %q", att.Content)
	}
	if msg.ReplyTo == nil || msg.ReplyTo.Address != "jane@example.com" {
		t.Errorf("expected reply-to jane@example.com, got %+v", msg.ReplyTo)
	}
}
