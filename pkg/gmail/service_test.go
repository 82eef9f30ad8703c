package gmail

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"
)

func TestDecodeBody(t *testing.T) {
	body := "Hello,\r\nCongrats on the raise!"

	unpadded := base64.RawURLEncoding.EncodeToString([]byte(body))
	got, err := decodeBody(unpadded)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	padded := base64.URLEncoding.EncodeToString([]byte(body))
	got, err = decodeBody(padded)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestParseDateHeader(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "rfc1123z", value: "Mon, 05 Jan 2026 09:15:00 -0500"},
		{name: "single digit day", value: "Mon, 5 Jan 2026 09:15:00 -0500"},
		{name: "no weekday", value: "5 Jan 2026 09:15:00 -0500"},
		{name: "garbage", value: "yesterday-ish", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDateHeader(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2026, got.Year())
			assert.Equal(t, time.January, got.Month())
			assert.Equal(t, 5, got.Day())
		})
	}
}

func TestExtractTextBodyPrefersPlainPart(t *testing.T) {
	plain := base64.RawURLEncoding.EncodeToString([]byte("plain text"))
	html := base64.RawURLEncoding.EncodeToString([]byte("<p>html</p>"))

	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: html}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: plain}},
		},
	}

	assert.Equal(t, "plain text", extractTextBody(payload))
}

func TestExtractTextBodyNestedMultipart(t *testing.T) {
	plain := base64.RawURLEncoding.EncodeToString([]byte("nested plain"))

	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: plain}},
				},
			},
		},
	}

	assert.Equal(t, "nested plain", extractTextBody(payload))
}
