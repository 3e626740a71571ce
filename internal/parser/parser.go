// Package parser reads a composed RFC 5322 message into an ses.Message so
// that a saved .eml file can be sent as is.
package parser

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shineum/sesnotify/internal/provider/ses"
)

// ErrMissingBoundary is returned for a multipart message without a boundary.
var ErrMissingBoundary = errors.New("multipart message missing boundary")

var wordDecoder = new(mime.WordDecoder)

// Parse converts raw into a Message. Plain text and HTML bodies are kept;
// attachments and unrecognized parts are dropped with a warning.
func Parse(raw []byte, logger zerolog.Logger) (ses.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return ses.Message{}, fmt.Errorf("failed to parse message: %w", err)
	}

	p := &parser{logger: logger}
	out := ses.Message{
		FromAddress:      parseAddress(msg.Header.Get("From")),
		ToAddresses:      parseAddressList(msg.Header.Get("To")),
		CCAddresses:      parseAddressList(msg.Header.Get("Cc")),
		BCCAddresses:     parseAddressList(msg.Header.Get("Bcc")),
		ReplyToAddresses: parseAddressList(msg.Header.Get("Reply-To")),
		Subject:          decodeHeader(msg.Header.Get("Subject")),
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		logger.Warn().
			Str("content_type", contentType).
			Err(err).
			Msg("failed to parse content type, treating as plain text")
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return ses.Message{}, ErrMissingBoundary
		}
		if err := p.multipart(msg.Body, boundary, &out); err != nil {
			return ses.Message{}, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return out, nil
	}

	body, err := decodeBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return ses.Message{}, fmt.Errorf("failed to read message body: %w", err)
	}
	if mediaType == "text/html" {
		out.HTMLContent = string(body)
	} else {
		if mediaType != "text/plain" {
			logger.Warn().Str("content_type", mediaType).Msg("unrecognized top-level content type")
		}
		out.PlainContent = string(body)
	}

	return out, nil
}

type parser struct {
	logger zerolog.Logger
}

// multipart walks the parts under boundary, keeping the first text/plain
// and text/html bodies found at any depth.
func (p *parser) multipart(body io.Reader, boundary string, out *ses.Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			p.logger.Warn().
				Str("content_type", partContentType).
				Err(err).
				Msg("failed to parse part content type, skipping")
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			nested := params["boundary"]
			if nested == "" {
				p.logger.Warn().Msg("nested multipart missing boundary, skipping")
				continue
			}
			if err := p.multipart(part, nested, out); err != nil {
				p.logger.Warn().Err(err).Msg("failed to parse nested multipart")
			}
			continue
		}

		disposition := part.Header.Get("Content-Disposition")
		if strings.HasPrefix(strings.ToLower(disposition), "attachment") || part.FileName() != "" {
			p.logger.Warn().
				Str("content_type", mediaType).
				Str("filename", part.FileName()).
				Msg("attachments are not supported, skipping part")
			continue
		}

		// multipart.Reader already removes quoted-printable encoding.
		content, err := decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			p.logger.Warn().
				Str("content_type", mediaType).
				Err(err).
				Msg("failed to read part content")
			continue
		}

		switch mediaType {
		case "text/plain":
			if out.PlainContent == "" {
				out.PlainContent = string(content)
			}
		case "text/html":
			if out.HTMLContent == "" {
				out.HTMLContent = string(content)
			}
		default:
			p.logger.Warn().
				Str("content_type", mediaType).
				Str("disposition", disposition).
				Msg("unrecognized MIME part, skipping")
		}
	}
}

// decodeBody reads r and removes the given Content-Transfer-Encoding.
func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(r))
	case "base64":
		raw, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Unpadded input.
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	default:
		return io.ReadAll(r)
	}
}

func decodeHeader(v string) string {
	decoded, err := wordDecoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

func parseAddress(raw string) string {
	if raw == "" {
		return ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return addr.Address
}

// parseAddressList returns the bare addresses in raw. Display names are
// dropped since they may contain commas.
func parseAddressList(raw string) []string {
	if raw == "" {
		return nil
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		// Fall back to simple comma split if RFC 5322 parsing fails
		parts := strings.Split(raw, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}
