package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{FromEmail: "studio@example.com"}, nil))
}

func TestSESSender_SimpleContent(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "studio@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@example.com",
		Subject: "Hello",
		Body:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, `"Studio Concierge" <studio@example.com>`, aws.ToString(in.FromEmailAddress))
	require.NotNil(t, in.Content.Simple)
	assert.Nil(t, in.Content.Raw)
	assert.Equal(t, "plain", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_RawContentWithAttachment(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "studio@example.com", FromName: "Wellness Studio"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@example.com",
		ReplyTo: "jane@example.com",
		Subject: "Neue Terminanfrage",
		Body:    "plain body",
		HTML:    "<p>html body</p>",
		Attachments: []Attachment{{
			Filename:    "appointment.ics",
			ContentType: "text/calendar; method=REQUEST",
			Content:     []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		}},
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	require.NotNil(t, in.Content.Raw)
	assert.Equal(t, []string{"jane@example.com"}, in.ReplyToAddresses)

	parsed, err := mail.ReadMessage(bytes.NewReader(in.Content.Raw.Data))
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Neue Terminanfrage", subject)
	assert.Contains(t, parsed.Header.Get("From"), "studio@example.com")
	assert.Contains(t, parsed.Header.Get("To"), "owner@example.com")
	assert.Contains(t, parsed.Header.Get("Reply-To"), "jane@example.com")

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	first, err := reader.NextPart()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.Header.Get("Content-Type"), "multipart/alternative"))

	second, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "appointment.ics", second.FileName())
	assert.True(t, strings.HasPrefix(second.Header.Get("Content-Type"), "text/calendar"))
	assert.Equal(t, "base64", strings.ToLower(second.Header.Get("Content-Transfer-Encoding")))
	// multipart.Reader decodes quoted-printable but not base64.
	encoded, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Contains(t, strings.ReplaceAll(string(encoded), "\r\n", ""), "QkVHSU46VkNBTEVOREFS")

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSESSender_SendError(t *testing.T) {
	client := &fakeSES{err: errors.New("throttled")}
	sender := NewSESSender(client, SESConfig{FromEmail: "studio@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "owner@example.com", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSESSender_RawRejectsInvalidRecipient(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "studio@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:          "not an address",
		Subject:     "x",
		Body:        "y",
		Attachments: []Attachment{{Filename: "a.ics", Content: []byte("x")}},
	})
	assert.ErrorContains(t, err, "invalid recipient")
	assert.Empty(t, client.inputs)
}
