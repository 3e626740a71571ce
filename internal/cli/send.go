package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shineum/sesnotify/internal/config"
	"github.com/shineum/sesnotify/internal/logger"
	"github.com/shineum/sesnotify/internal/notify"
	"github.com/shineum/sesnotify/internal/parser"
	"github.com/shineum/sesnotify/internal/provider/ses"
	"github.com/shineum/sesnotify/internal/provider/stdout"
	"github.com/shineum/sesnotify/internal/telemetry"
)

// ErrSendFailed is returned by the send command when the provider reports
// a failed result.
var ErrSendFailed = errors.New("send failed")

type sendOptions struct {
	configPath string
	emlPath    string
	dryRun     bool
	params     []string
	msg        ses.Message
}

func newSendCommand() *cobra.Command {
	o := &sendOptions{}

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one email",
		Example: `  sesnotify send --to user@example.com --subject "Hello" --text "Hi there"
  sesnotify send --dry-run --from me@example.com --to a@example.com,b@example.com --html "<p>Hi</p>"
  sesnotify send --eml welcome.eml --to user@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "path to YAML configuration file (optional)")
	f.StringVar(&o.emlPath, "eml", "", "read the message from an RFC 5322 file (- for stdin); flags override its fields")
	f.BoolVar(&o.dryRun, "dry-run", false, "print the request instead of calling SES")
	f.StringArrayVar(&o.params, "param", nil, "raw provider parameter as key=value (repeatable)")
	f.StringVar(&o.msg.FromAddress, "from", "", "sender address (defaults to amazonses.default_from_address)")
	f.StringSliceVar(&o.msg.ToAddresses, "to", nil, "recipient addresses, comma separated")
	f.StringSliceVar(&o.msg.CCAddresses, "cc", nil, "carbon copy addresses, comma separated")
	f.StringSliceVar(&o.msg.BCCAddresses, "bcc", nil, "blind carbon copy addresses, comma separated")
	f.StringSliceVar(&o.msg.ReplyToAddresses, "reply-to", nil, "reply-to addresses, comma separated")
	f.StringVar(&o.msg.Subject, "subject", "", "message subject")
	f.StringVar(&o.msg.PlainContent, "text", "", "plain text body")
	f.StringVar(&o.msg.HTMLContent, "html", "", "HTML body")

	return cmd
}

func (o *sendOptions) run(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	msg, err := o.message(cmd, log)
	if err != nil {
		return err
	}

	var notifyOpts []notify.Option
	if cfg.Tracing.Enabled {
		tp, err := telemetry.InitTracer(serviceName, cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("Error shutting down tracer")
			}
		}()
		notifyOpts = append(notifyOpts, notify.WithTracerProvider(tp))
	}

	n := notify.New(log, notifyOpts...)
	defer func() {
		if err := n.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing providers")
		}
	}()

	if err := n.Register(o.provider(ctx, cfg, cmd, log)); err != nil {
		return err
	}

	var result notify.Result
	if len(o.params) == 0 {
		result = ses.SendEmail(ctx, n, msg)
	} else {
		params, err := o.parameters(msg)
		if err != nil {
			return err
		}
		result = n.Send(ctx, ses.Name, params)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if !result.Success {
		return fmt.Errorf("%w: %w", ErrSendFailed, result.Err())
	}
	return nil
}

// provider selects the SES transport: the stdout printer for dry runs,
// otherwise a real SES client.
func (o *sendOptions) provider(ctx context.Context, cfg *config.Config, cmd *cobra.Command, log zerolog.Logger) *ses.Provider {
	if o.dryRun || cfg.Transport == config.TransportStdout {
		log.Debug().Msg("using stdout transport")
		return ses.NewWithClient(cfg.SES, stdout.NewWithWriter(cmd.OutOrStdout()), log)
	}
	log.Debug().
		Str("region", cfg.SES.Region).
		Bool("static_credentials", cfg.SES.StaticCredentials()).
		Msg("using SES transport")
	return ses.New(ctx, cfg.SES, log)
}

// parameters merges the message flags with the raw --param values. A raw
// value may not replace one set by a flag.
func (o *sendOptions) parameters(msg ses.Message) (notify.Parameters, error) {
	params := msg.ToParameters()
	for _, kv := range o.params {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", kv)
		}
		if err := params.Add(key, value); err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
	}
	return params, nil
}

// message returns the message built from flags, layered over the --eml
// file when one is given.
func (o *sendOptions) message(cmd *cobra.Command, log zerolog.Logger) (ses.Message, error) {
	if o.emlPath == "" {
		return o.msg, nil
	}

	var (
		raw []byte
		err error
	)
	if o.emlPath == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(o.emlPath)
	}
	if err != nil {
		return ses.Message{}, fmt.Errorf("failed to read message file: %w", err)
	}

	base, err := parser.Parse(raw, log)
	if err != nil {
		return ses.Message{}, err
	}
	return overlay(base, o.msg), nil
}

// overlay replaces every field of base that is set in top.
func overlay(base, top ses.Message) ses.Message {
	if top.FromAddress != "" {
		base.FromAddress = top.FromAddress
	}
	if len(top.ToAddresses) > 0 {
		base.ToAddresses = top.ToAddresses
	}
	if len(top.CCAddresses) > 0 {
		base.CCAddresses = top.CCAddresses
	}
	if len(top.BCCAddresses) > 0 {
		base.BCCAddresses = top.BCCAddresses
	}
	if len(top.ReplyToAddresses) > 0 {
		base.ReplyToAddresses = top.ReplyToAddresses
	}
	if top.Subject != "" {
		base.Subject = top.Subject
	}
	if top.PlainContent != "" {
		base.PlainContent = top.PlainContent
	}
	if top.HTMLContent != "" {
		base.HTMLContent = top.HTMLContent
	}
	return base
}

// loadConfig loads configuration from the specified path (YAML + env
// override) or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
