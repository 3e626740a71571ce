// Package ses implements a notify.Provider that sends emails via AWS SES v2.
package ses

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"

	"github.com/shineum/sesnotify/internal/notify"
)

// Name is the name the provider registers under.
const Name = "amazonses"

const (
	charset = "UTF-8"

	// emptyFromAddress is reported when neither the message nor the
	// options carry a from-address.
	emptyFromAddress = "From Address should not be empty"
)

// Provider sends emails via the AWS SES v2 API.
type Provider struct {
	options Options
	client  Client
	logger  zerolog.Logger

	// conns is set only when the provider built its own SES client.
	conns     idleCloser
	closeOnce sync.Once
}

// idleCloser is implemented by *http.Transport.
type idleCloser interface {
	CloseIdleConnections()
}

var _ notify.Provider = (*Provider)(nil)

// New creates a Provider with an SES client built from opts. It never
// fails: credential or configuration problems surface on Send.
func New(ctx context.Context, opts Options, logger zerolog.Logger) *Provider {
	region, known := ResolveRegion(opts.Region)
	if !known {
		logger.Warn().
			Str("region", opts.Region).
			Str("fallback", region).
			Msg("unknown AWS region, using fallback")
	}

	// GetTransport returns a copy with the SDK defaults, owned by p.
	transport := awshttp.NewBuildableClient().GetTransport()
	httpClient := &http.Client{Transport: transport}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(httpClient),
	}

	var staticCreds aws.CredentialsProvider
	if opts.StaticCredentials() {
		staticCreds = credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load AWS config, continuing with explicit settings")
		awsCfg = aws.Config{
			Region:      region,
			Credentials: staticCreds,
			HTTPClient:  httpClient,
		}
		if staticCreds == nil {
			awsCfg.Credentials = aws.AnonymousCredentials{}
		}
	}

	p := NewWithClient(opts, NewSDKClient(sesv2.NewFromConfig(awsCfg)), logger)
	p.conns = transport
	return p
}

// NewWithClient creates a Provider that sends through client. The caller
// keeps ownership of client.
func NewWithClient(opts Options, client Client, logger zerolog.Logger) *Provider {
	return &Provider{
		options: opts,
		client:  client,
		logger:  logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return Name
}

// Close releases idle connections held by a client built in New.
// It is safe to call more than once.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.conns != nil {
			p.conns.CloseIdleConnections()
		}
	})
	return nil
}

// Send delivers the message described by params. Every failure, including
// a panicking transport, is returned as a failed notify.Result.
func (p *Provider) Send(ctx context.Context, params notify.Parameters) (result notify.Result) {
	msg := MessageFromParameters(params)

	source := msg.FromAddress
	if source == "" {
		source = p.options.DefaultFromAddress
	}
	if source == "" {
		return notify.Failure(emptyFromAddress)
	}

	input := buildInput(source, msg)

	logger := p.logger.With().
		Str("subject", msg.Subject).
		Strs("to_addresses", msg.ToAddresses).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Warn().Interface("panic", r).Msg("Failed sending email")
			result = notify.Failure(fmt.Sprintf("ses transport panic: %v", r))
		}
	}()

	if p.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.options.Timeout)
		defer cancel()
	}

	logger.Debug().Msg("Sending email")

	resp, err := p.client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed sending email")
		return notify.Failure(err.Error())
	}

	if resp == nil {
		resp = &Response{StatusCode: http.StatusOK}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("message_id", resp.MessageID).
			Msg("Failed sending email")
		return notify.Failure(fmt.Sprintf("Status code = %d, Message Id = %s", resp.StatusCode, resp.MessageID))
	}

	logger.Debug().Str("message_id", resp.MessageID).Msg("Email has been sent")
	return notify.Success()
}

// buildInput creates the SES SendEmailInput for msg sent from source.
func buildInput(source string, msg Message) *sesv2.SendEmailInput {
	body := &types.Body{}

	if msg.HTMLContent != "" {
		body.Html = &types.Content{
			Data:    aws.String(msg.HTMLContent),
			Charset: aws.String(charset),
		}
	}
	if msg.PlainContent != "" {
		body.Text = &types.Content{
			Data:    aws.String(msg.PlainContent),
			Charset: aws.String(charset),
		}
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(source),
		Destination: &types.Destination{
			ToAddresses:  msg.ToAddresses,
			CcAddresses:  msg.CCAddresses,
			BccAddresses: msg.BCCAddresses,
		},
		ReplyToAddresses: msg.ReplyToAddresses,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String(charset),
				},
				Body: body,
			},
		},
	}
}
