// Package ses implements a Transmitter that sends raw messages via AWS SES v2.
package ses

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Options holds the configuration for creating a Transmitter.
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transmitter sends already-rewritten raw messages via the AWS SES v2 API.
// Each message gets a single attempt; re-delivery is the caller's decision.
type Transmitter struct {
	client SendEmailAPI
}

// New creates a Transmitter with the given configuration.
func New(ctx context.Context, cfg Options) (*Transmitter, error) {
	var opts []func(*awsconfig.LoadOptions) error

	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Transmitter{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Transmitter with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *Transmitter {
	return &Transmitter{client: client}
}

// Send delivers the raw message via AWS SES v2. The message text already
// carries the rewritten headers, so it is sent as raw content with the
// destinations and bounce source set explicitly.
func (t *Transmitter) Send(ctx context.Context, destinations []string, source, raw string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: destinations,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{
				Data: []byte(raw),
			},
		},
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("SES API request failed: %w", err)
	}
	return nil
}

// Name returns the transmitter name.
func (t *Transmitter) Name() string {
	return "ses"
}
