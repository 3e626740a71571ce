package ses

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// *sesv2.Client satisfies it.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Response is what the transport reports for one accepted request.
type Response struct {
	StatusCode int
	MessageID  string
}

// Client is the transport the Provider sends through.
type Client interface {
	SendEmail(ctx context.Context, input *sesv2.SendEmailInput) (*Response, error)
}

// SDKClient adapts a SendEmailAPI to Client.
type SDKClient struct {
	api SendEmailAPI
}

// NewSDKClient wraps api, typically a *sesv2.Client.
func NewSDKClient(api SendEmailAPI) *SDKClient {
	return &SDKClient{api: api}
}

// SendEmail calls SES and reports the HTTP status and message id.
func (c *SDKClient) SendEmail(ctx context.Context, input *sesv2.SendEmailInput) (*Response, error) {
	out, err := c.api.SendEmail(ctx, input)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return &Response{StatusCode: http.StatusOK}, nil
	}
	return &Response{
		StatusCode: statusCode(out.ResultMetadata),
		MessageID:  aws.ToString(out.MessageId),
	}, nil
}

// statusCode reads the raw HTTP status recorded by the SDK. The SDK only
// returns an output for 2xx responses, so a missing record means 200.
func statusCode(md middleware.Metadata) int {
	raw, ok := awsmiddleware.GetRawResponse(md).(*smithyhttp.Response)
	if !ok || raw == nil || raw.Response == nil {
		return http.StatusOK
	}
	return raw.StatusCode
}
