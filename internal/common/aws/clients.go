// internal/common/aws/clients.go
package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Options select the region and, for local stacks, an endpoint override
// shared by SES and SNS.
type Options struct {
	Region   string
	Endpoint string
}

func loadConfig(ctx context.Context, opts Options) (sdkaws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.Endpoint != "" {
		resolver := sdkaws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (sdkaws.Endpoint, error) {
			return sdkaws.Endpoint{
				URL:               opts.Endpoint,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		})
		loaders = append(loaders, config.WithEndpointResolverWithOptions(resolver))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return sdkaws.Config{}, fmt.Errorf("load aws config for %s: %w", opts.Region, err)
	}
	return cfg, nil
}

// SESClient sends applicant confirmation emails.
type SESClient struct {
	client *ses.Client
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input, optFns...)
}

// SNSClient sends applicant confirmation text messages.
type SNSClient struct {
	client *sns.Client
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input, optFns...)
}

// NewConfirmationClients builds the SES and SNS clients from one config.
func NewConfirmationClients(ctx context.Context, opts Options) (*SESClient, *SNSClient, error) {
	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return &SESClient{client: ses.NewFromConfig(cfg)}, &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}
