// Package stdout implements an SES transport that prints requests to a
// writer instead of calling AWS. It backs the CLI dry-run mode.
package stdout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"

	"github.com/shineum/sesnotify/internal/provider/ses"
)

const separator = "========================================\n"

// Client prints SES requests in a human-readable format.
type Client struct {
	mu     sync.Mutex
	writer io.Writer
}

var _ ses.Client = (*Client)(nil)

// NewWithWriter creates a Client that writes to w.
func NewWithWriter(w io.Writer) *Client {
	return &Client{writer: w}
}

// SendEmail prints input and reports it as accepted with a random message id.
func (c *Client) SendEmail(ctx context.Context, input *sesv2.SendEmailInput) (*ses.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	var b strings.Builder
	b.WriteString(separator)
	fmt.Fprintf(&b, "Message-Id: %s\n", id)
	fmt.Fprintf(&b, "From: %s\n", aws.ToString(input.FromEmailAddress))

	if d := input.Destination; d != nil {
		writeList(&b, "To", d.ToAddresses)
		writeList(&b, "Cc", d.CcAddresses)
		writeList(&b, "Bcc", d.BccAddresses)
	}
	writeList(&b, "Reply-To", input.ReplyToAddresses)

	if input.Content != nil && input.Content.Simple != nil {
		simple := input.Content.Simple
		if simple.Subject != nil {
			fmt.Fprintf(&b, "Subject: %s\n", aws.ToString(simple.Subject.Data))
		}
		if body := simple.Body; body != nil {
			if body.Text != nil {
				fmt.Fprintf(&b, "Text:\n%s\n", aws.ToString(body.Text.Data))
			}
			if body.Html != nil {
				fmt.Fprintf(&b, "HTML:\n%s\n", aws.ToString(body.Html.Data))
			}
		}
	}
	b.WriteString(separator)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.writer, b.String()); err != nil {
		return nil, fmt.Errorf("stdout: write request: %w", err)
	}

	return &ses.Response{StatusCode: http.StatusOK, MessageID: id}, nil
}

func writeList(b *strings.Builder, header string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(b, "%s: %s\n", header, strings.Join(values, ", "))
	}
}
