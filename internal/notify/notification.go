package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/shineum/sesnotify/internal/notify"

// ErrProviderExists is returned when a provider name is registered twice.
var ErrProviderExists = errors.New("provider already registered")

// Option customises a Notification.
type Option func(*Notification)

// WithTracerProvider sets the tracer provider used for send spans.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(n *Notification) {
		if tp != nil {
			n.tracer = tp.Tracer(tracerName)
		}
	}
}

// Notification routes send requests to registered providers by name.
type Notification struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// New creates an empty dispatcher.
func New(logger zerolog.Logger, opts ...Option) *Notification {
	n := &Notification{
		providers: make(map[string]Provider),
		logger:    logger,
		tracer:    otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

// Register adds a provider under its Name. Names are case-insensitive.
func (n *Notification) Register(p Provider) error {
	if p == nil {
		return errors.New("notify: provider cannot be nil")
	}
	name := normalize(p.Name())
	if name == "" {
		return errors.New("notify: provider name cannot be empty")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.providers[name]; ok {
		return fmt.Errorf("notify: %w: %s", ErrProviderExists, name)
	}
	n.providers[name] = p

	n.logger.Debug().Str("provider", name).Msg("provider registered")
	return nil
}

// Provider returns the provider registered under name.
func (n *Notification) Provider(name string) (Provider, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	p, ok := n.providers[normalize(name)]
	return p, ok
}

// Names returns the registered provider names in sorted order.
func (n *Notification) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.providers))
	for name := range n.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send delivers params through the named provider. An unknown provider
// yields a failed Result.
func (n *Notification) Send(ctx context.Context, provider string, params Parameters) Result {
	ctx, span := n.tracer.Start(ctx, "notify.Send",
		trace.WithAttributes(attribute.String("notify.provider", normalize(provider))),
	)
	defer span.End()

	p, ok := n.Provider(provider)
	if !ok {
		result := Failure(fmt.Sprintf("provider %q is not registered", provider))
		span.SetStatus(codes.Error, result.Errors[0])
		return result
	}

	result := p.Send(ctx, params)
	span.SetAttributes(attribute.Bool("notify.success", result.Success))
	if !result.Success {
		span.SetStatus(codes.Error, strings.Join(result.Errors, "; "))
	}
	return result
}

// Close closes every registered provider that holds resources.
func (n *Notification) Close() error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var errs []error
	for name, p := range n.providers {
		c, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
