package mailing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/report-runner/internal/config"
)

// SESAPI is the subset of the SES v2 client used by SESTransport.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESTransport sends raw MIME messages through Amazon SES.
type SESTransport struct {
	client SESAPI
}

// NewSESTransport builds an SES client. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func NewSESTransport(ctx context.Context, cfg config.MailConfig) (*SESTransport, error) {
	region := cfg.SESRegion
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.SESAccessKey != "" && cfg.SESSecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SESAccessKey, cfg.SESSecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewSESTransportWithClient(sesv2.NewFromConfig(awsCfg)), nil
}

// NewSESTransportWithClient wraps an existing client.
func NewSESTransportWithClient(client SESAPI) *SESTransport {
	return &SESTransport{client: client}
}

// Send submits msg unchanged. Every recipient is listed in the destination,
// which is how Bcc addresses receive a message whose headers omit them.
func (t *SESTransport) Send(ctx context.Context, from string, recipients []string, msg []byte) error {
	if t.client == nil {
		return fmt.Errorf("SES client not initialized")
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: recipients},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: msg},
		},
	}
	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("SES send: %w", err)
	}
	return nil
}
