package usecase

import (
	"context"
	"time"

	"github.com/replyline/replyline/pkg/gmail"
)

// Mailer is the slice of the Gmail service the pipeline stages consume.
// Satisfied by *gmail.Service; tests substitute fakes.
type Mailer interface {
	ListUnreadSince(ctx context.Context, account string, since time.Time, domains []string) ([]string, error)
	ListMatchingSince(ctx context.Context, account string, since time.Time, filterQuery string) ([]string, error)
	GetMessage(ctx context.Context, account, messageID string) (*gmail.Message, error)
	GetLatestThreadMessageID(ctx context.Context, account, threadID string) (string, error)
	Send(ctx context.Context, account string, req gmail.SendRequest) error
}
