package ses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shineum/sesnotify/internal/notify"
)

// mockClient is a testify mock of Client.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendEmail(ctx context.Context, input *sesv2.SendEmailInput) (*Response, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Response), args.Error(1)
}

// syncBuffer guards a bytes.Buffer for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

type logEntry struct {
	Level       string   `json:"level"`
	Message     string   `json:"message"`
	Subject     string   `json:"subject"`
	ToAddresses []string `json:"to_addresses"`
	StatusCode  int      `json:"status_code"`
	MessageID   string   `json:"message_id"`
	Error       string   `json:"error"`
}

func (b *syncBuffer) entries(t *testing.T) []logEntry {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []logEntry
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e logEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func hasEntry(entries []logEntry, level, message string) bool {
	for _, e := range entries {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

func newTestProvider(opts Options, client Client) (*Provider, *syncBuffer) {
	buf := &syncBuffer{}
	return NewWithClient(opts, client, zerolog.New(buf)), buf
}

func testMessage() Message {
	return Message{
		FromAddress: "sender@example.com",
		ToAddresses: []string{"user@example.com"},
		Subject:     "Test Email",
	}
}

func TestName(t *testing.T) {
	t.Parallel()
	p, _ := newTestProvider(Options{}, &mockClient{})
	assert.Equal(t, "amazonses", p.Name())
}

func TestSend_Success(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusOK, MessageID: "abc"}, nil)

	p, logs := newTestProvider(Options{}, client)
	msg := testMessage()

	result := p.Send(context.Background(), msg.ToParameters())

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	client.AssertNumberOfCalls(t, "SendEmail", 1)

	entries := logs.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, "debug", entries[0].Level)
	assert.Equal(t, "Sending email", entries[0].Message)
	assert.Equal(t, "Test Email", entries[0].Subject)
	assert.Equal(t, []string{"user@example.com"}, entries[0].ToAddresses)
	assert.Equal(t, "debug", entries[1].Level)
	assert.Equal(t, "Email has been sent", entries[1].Message)
	assert.Equal(t, "Test Email", entries[1].Subject)
}

func TestSend_BuildsRequest(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusOK}, nil)

	p, _ := newTestProvider(Options{}, client)
	msg := Message{
		FromAddress:      "sender@example.com",
		ToAddresses:      []string{"to1@example.com", "to2@example.com"},
		CCAddresses:      []string{"cc@example.com"},
		BCCAddresses:     []string{"bcc@example.com"},
		ReplyToAddresses: []string{"reply@example.com"},
		Subject:          "Multi-recipient",
		PlainContent:     "Plain text fallback",
		HTMLContent:      "<h1>Hello</h1>",
	}

	result := p.Send(context.Background(), msg.ToParameters())
	require.True(t, result.Success)

	input := client.Calls[0].Arguments.Get(1).(*sesv2.SendEmailInput)
	assert.Equal(t, "sender@example.com", *input.FromEmailAddress)
	assert.Equal(t, []string{"to1@example.com", "to2@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, []string{"cc@example.com"}, input.Destination.CcAddresses)
	assert.Equal(t, []string{"bcc@example.com"}, input.Destination.BccAddresses)
	assert.Equal(t, []string{"reply@example.com"}, input.ReplyToAddresses)
	assert.Equal(t, "Multi-recipient", *input.Content.Simple.Subject.Data)
	assert.Equal(t, "Plain text fallback", *input.Content.Simple.Body.Text.Data)
	assert.Equal(t, "<h1>Hello</h1>", *input.Content.Simple.Body.Html.Data)
	assert.Equal(t, "UTF-8", *input.Content.Simple.Body.Html.Charset)
}

func TestSend_FailedStatus(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusBadRequest, MessageID: "1"}, nil)

	p, logs := newTestProvider(Options{}, client)
	msg := testMessage()

	result := p.Send(context.Background(), msg.ToParameters())

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Status code"))
	assert.Equal(t, "Status code = 400, Message Id = 1", result.Errors[0])

	entries := logs.entries(t)
	require.Len(t, entries, 2)
	warn := entries[1]
	assert.Equal(t, "warn", warn.Level)
	assert.Equal(t, "Failed sending email", warn.Message)
	assert.Equal(t, "Test Email", warn.Subject)
	assert.Equal(t, []string{"user@example.com"}, warn.ToAddresses)
	assert.Equal(t, 400, warn.StatusCode)
	assert.Equal(t, "1", warn.MessageID)
	assert.False(t, hasEntry(entries, "debug", "Email has been sent"))
}

func TestSend_TransportError(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(nil, errors.New("network unreachable"))

	p, logs := newTestProvider(Options{}, client)
	msg := testMessage()

	result := p.Send(context.Background(), msg.ToParameters())

	assert.False(t, result.Success)
	assert.Equal(t, []string{"network unreachable"}, result.Errors)

	entries := logs.entries(t)
	assert.True(t, hasEntry(entries, "warn", "Failed sending email"))
	assert.False(t, hasEntry(entries, "debug", "Email has been sent"))
	assert.Equal(t, "network unreachable", entries[len(entries)-1].Error)
}

func TestSend_TransportPanic(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("nil transport") })

	p, _ := newTestProvider(Options{}, client)
	msg := testMessage()

	var result notify.Result
	require.NotPanics(t, func() {
		result = p.Send(context.Background(), msg.ToParameters())
	})
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "nil transport")
}

func TestSend_WithDefaultFromAddress(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusOK}, nil)

	p, _ := newTestProvider(Options{DefaultFromAddress: "default@example.com"}, client)
	msg := Message{
		ToAddresses: []string{"user@example.com"},
		Subject:     "Test Email",
	}

	result := p.Send(context.Background(), msg.ToParameters())

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	input := client.Calls[0].Arguments.Get(1).(*sesv2.SendEmailInput)
	assert.Equal(t, "default@example.com", *input.FromEmailAddress)
}

func TestSend_MessageFromAddressWins(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusOK}, nil)

	p, _ := newTestProvider(Options{DefaultFromAddress: "default@example.com"}, client)
	msg := testMessage()

	require.True(t, p.Send(context.Background(), msg.ToParameters()).Success)
	input := client.Calls[0].Arguments.Get(1).(*sesv2.SendEmailInput)
	assert.Equal(t, "sender@example.com", *input.FromEmailAddress)
}

func TestSend_WithoutFromAddress(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	p, logs := newTestProvider(Options{}, client)
	msg := Message{
		ToAddresses: []string{"user@example.com"},
		Subject:     "Test Email",
	}

	result := p.Send(context.Background(), msg.ToParameters())

	assert.False(t, result.Success)
	assert.Equal(t, []string{"From Address should not be empty"}, result.Errors)
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	assert.Empty(t, logs.entries(t))
}

func TestSend_ContextCancelled(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(nil, context.Canceled)

	p, _ := newTestProvider(Options{}, client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := testMessage()
	result := p.Send(ctx, msg.ToParameters())

	assert.False(t, result.Success)
	assert.Equal(t, []string{context.Canceled.Error()}, result.Errors)
}

func TestSend_Timeout(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "expected a deadline on the transport context")
		})

	p, _ := newTestProvider(Options{Timeout: 50 * time.Millisecond}, client)
	msg := testMessage()

	result := p.Send(context.Background(), msg.ToParameters())

	assert.False(t, result.Success)
	assert.Equal(t, []string{context.DeadlineExceeded.Error()}, result.Errors)
}

func TestSend_Concurrent(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusOK}, nil)

	p, _ := newTestProvider(Options{}, client)
	msg := testMessage()

	var wg sync.WaitGroup
	results := make([]notify.Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Send(context.Background(), msg.ToParameters())
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r.Success)
	}
	client.AssertNumberOfCalls(t, "SendEmail", len(results))
}

func TestNew_NeverFails(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent/credentials")

	buf := &syncBuffer{}
	p := New(context.Background(), Options{
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Region:    "mars-north-1",
	}, zerolog.New(buf))
	require.NotNil(t, p)
	assert.Equal(t, Name, p.Name())
	assert.True(t, hasEntry(buf.entries(t), "warn", "unknown AWS region, using fallback"))

	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
}

// countingConns records CloseIdleConnections calls.
type countingConns struct {
	mu     sync.Mutex
	closed int
}

func (c *countingConns) CloseIdleConnections() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func TestNew_OwnsTransport(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/nonexistent/config")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/nonexistent/credentials")

	p := New(context.Background(), Options{Region: "eu-west-1"}, zerolog.Nop())
	require.NotNil(t, p.conns)
	assert.IsType(t, &http.Transport{}, p.conns)

	// Close must reach the transport New built, exactly once.
	conns := &countingConns{}
	p.conns = conns

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, conns.closed)
}

func TestClose_InjectedClient(t *testing.T) {
	t.Parallel()

	p := NewWithClient(Options{}, &mockClient{}, zerolog.Nop())
	assert.Nil(t, p.conns)
	assert.NoError(t, p.Close())
}

func TestNewWithClient_ZeroLogger(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendEmail", mock.Anything, mock.Anything).
		Return(&Response{StatusCode: http.StatusOK}, nil)

	p := NewWithClient(Options{}, client, zerolog.Logger{})
	msg := testMessage()
	assert.True(t, p.Send(context.Background(), msg.ToParameters()).Success)
	assert.NoError(t, p.Close())
}

func TestBuildInput_OmitsEmptyBodies(t *testing.T) {
	t.Parallel()

	input := buildInput("sender@example.com", Message{Subject: "Only subject"})

	assert.Nil(t, input.Content.Simple.Body.Html)
	assert.Nil(t, input.Content.Simple.Body.Text)
	assert.Equal(t, "Only subject", *input.Content.Simple.Subject.Data)
	assert.Equal(t, "UTF-8", *input.Content.Simple.Subject.Charset)
}

func TestProviderInterface(t *testing.T) {
	t.Parallel()

	var _ notify.Provider = (*Provider)(nil)
}
