package ses

import (
	"context"

	"github.com/shineum/sesnotify/internal/notify"
)

// SendEmail sends msg through the provider registered as Name on s.
func SendEmail(ctx context.Context, s notify.Sender, msg Message) notify.Result {
	return s.Send(ctx, Name, msg.ToParameters())
}
