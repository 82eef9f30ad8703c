package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	maxListResults = 20
	maxRetries     = 3
	bodySnippetLen = 2000
)

// Service talks to Gmail on behalf of the CEO account via a domain-wide
// delegation service account.
type Service struct {
	serviceAccountEmail string
	privateKey          string
	logger              *zap.Logger
}

// Message is the inbound email shape the pipeline works with.
type Message struct {
	MessageID  string
	ThreadID   string
	From       string
	Subject    string
	Body       string
	CC         string
	ReceivedAt time.Time
}

// SendRequest describes one outbound reply.
type SendRequest struct {
	To        string
	CC        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}

func NewService(serviceAccountEmail, privateKey string, logger *zap.Logger) *Service {
	return &Service{
		serviceAccountEmail: serviceAccountEmail,
		privateKey:          privateKey,
		logger:              logger.Named("gmail"),
	}
}

// client builds a Gmail client impersonating the given account.
func (s *Service) client(ctx context.Context, account string) (*gmail.Service, error) {
	conf := &jwt.Config{
		Email:      s.serviceAccountEmail,
		PrivateKey: []byte(strings.ReplaceAll(s.privateKey, `\n`, "\n")),
		Scopes: []string{
			gmail.GmailReadonlyScope,
			gmail.GmailSendScope,
		},
		Subject:  account,
		TokenURL: google.JWTTokenURL,
	}

	srv, err := gmail.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// withRetry retries transient rate limiting (429) with doubling delays.
// All other failures surface immediately.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	delay := time.Second
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var apiErr *googleapi.Error
		if !asGoogleAPIError(err, &apiErr) || apiErr.Code != 429 || attempt >= maxRetries-1 {
			return err
		}

		s.logger.Warn("Gmail rate limited, retrying",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}

func asGoogleAPIError(err error, target **googleapi.Error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		*target = apiErr
		return true
	}
	return false
}

// ListUnreadSince returns the ids of unread messages received after since
// from the given sender domains.
func (s *Service) ListUnreadSince(ctx context.Context, account string, since time.Time, domains []string) ([]string, error) {
	parts := make([]string, 0, len(domains))
	for _, d := range domains {
		parts = append(parts, "from:"+d)
	}
	query := fmt.Sprintf("is:unread (%s) after:%d", strings.Join(parts, " OR "), since.Unix())
	return s.listIDs(ctx, account, query)
}

// ListMatchingSince returns the ids of unread messages received after since
// that satisfy a trigger's Gmail filter query.
func (s *Service) ListMatchingSince(ctx context.Context, account string, since time.Time, filterQuery string) ([]string, error) {
	query := fmt.Sprintf("%s is:unread after:%d", filterQuery, since.Unix())
	return s.listIDs(ctx, account, query)
}

func (s *Service) listIDs(ctx context.Context, account, query string) ([]string, error) {
	srv, err := s.client(ctx, account)
	if err != nil {
		return nil, err
	}

	var res *gmail.ListMessagesResponse
	err = s.withRetry(ctx, func() error {
		res, err = srv.Users.Messages.List("me").
			Q(query).
			MaxResults(maxListResults).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list messages: %w", err)
	}

	ids := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		if m.Id != "" {
			ids = append(ids, m.Id)
		}
	}
	return ids, nil
}

// GetMessage fetches one message's headers and plain-text body. The body is
// truncated to a bounded snippet before it reaches the classifier.
func (s *Service) GetMessage(ctx context.Context, account, messageID string) (*Message, error) {
	srv, err := s.client(ctx, account)
	if err != nil {
		return nil, err
	}

	var res *gmail.Message
	err = s.withRetry(ctx, func() error {
		res, err = srv.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get message %s: %w", messageID, err)
	}

	msg := &Message{
		MessageID:  messageID,
		ThreadID:   res.ThreadId,
		ReceivedAt: time.Now(),
	}

	if res.Payload != nil {
		for _, h := range res.Payload.Headers {
			switch h.Name {
			case "From":
				msg.From = h.Value
			case "Subject":
				msg.Subject = h.Value
			case "Cc":
				msg.CC = h.Value
			case "Date":
				if t, err := parseDateHeader(h.Value); err == nil {
					msg.ReceivedAt = t
				}
			}
		}
		msg.Body = extractTextBody(res.Payload)
	}

	if len(msg.Body) > bodySnippetLen {
		msg.Body = msg.Body[:bodySnippetLen]
	}
	return msg, nil
}

func parseDateHeader(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, "Mon, 2 Jan 2006 15:04:05 -0700", "2 Jan 2006 15:04:05 -0700"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date header: %s", value)
}

func extractTextBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := decodeBody(payload.Body.Data); err == nil {
			return decoded
		}
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := decodeBody(part.Body.Data); err == nil {
				return decoded
			}
		}
	}
	// Fall back to the first nested multipart
	for _, part := range payload.Parts {
		if strings.HasPrefix(part.MimeType, "multipart/") {
			if body := extractTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

// decodeBody decodes Gmail's base64url message bodies, padded or not.
func decodeBody(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// GetLatestThreadMessageID returns the RFC 822 Message-ID of the newest
// message in a thread, used for reply threading headers.
func (s *Service) GetLatestThreadMessageID(ctx context.Context, account, threadID string) (string, error) {
	srv, err := s.client(ctx, account)
	if err != nil {
		return "", err
	}

	var res *gmail.Thread
	err = s.withRetry(ctx, func() error {
		res, err = srv.Users.Threads.Get("me", threadID).
			Format("metadata").
			MetadataHeaders("Message-ID").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("unable to get thread %s: %w", threadID, err)
	}

	if len(res.Messages) == 0 {
		return "", nil
	}

	last := res.Messages[len(res.Messages)-1]
	if last.Payload == nil {
		return "", nil
	}
	for _, h := range last.Payload.Headers {
		if strings.EqualFold(h.Name, "Message-ID") {
			return h.Value, nil
		}
	}
	return "", nil
}

// Send dispatches one reply from the CEO account.
func (s *Service) Send(ctx context.Context, account string, req SendRequest) error {
	srv, err := s.client(ctx, account)
	if err != nil {
		return err
	}

	subject := req.Subject
	if req.ThreadID != "" && !strings.HasPrefix(strings.ToLower(subject), "re:") {
		subject = "Re: " + subject
	}

	headers := []string{
		"To: " + req.To,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
	}
	if req.CC != "" {
		headers = append(headers, "Cc: "+req.CC)
	}
	if req.InReplyTo != "" {
		headers = append(headers, "In-Reply-To: "+req.InReplyTo)
		headers = append(headers, "References: "+req.InReplyTo)
	}

	raw := strings.Join(append(headers, "", req.Body), "\r\n")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(raw))

	message := &gmail.Message{Raw: encoded}
	if req.ThreadID != "" {
		message.ThreadId = req.ThreadID
	}

	err = s.withRetry(ctx, func() error {
		_, err := srv.Users.Messages.Send("me", message).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to send message: %w", err)
	}
	return nil
}

// Watch registers the inbox for push notifications on the given Pub/Sub topic.
// Gmail expires watches after about a week; callers re-register periodically.
func (s *Service) Watch(ctx context.Context, account, projectID, topic string) error {
	srv, err := s.client(ctx, account)
	if err != nil {
		return err
	}

	req := &gmail.WatchRequest{
		TopicName: fmt.Sprintf("projects/%s/topics/%s", projectID, topic),
		LabelIds:  []string{"INBOX"},
	}

	err = s.withRetry(ctx, func() error {
		_, err := srv.Users.Watch("me", req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to register mailbox watch: %w", err)
	}
	return nil
}
