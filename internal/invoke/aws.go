package invoke

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/watzon/healthcheck/internal/config"
)

// LoadAWSConfig builds the shared AWS configuration from tool settings.
func LoadAWSConfig(ctx context.Context, region string, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return awsCfg, nil
}

// NewLambdaAPI creates a Lambda client, pointing it at cfg.Endpoint when set.
func NewLambdaAPI(awsCfg aws.Config, cfg config.AWSConfig) *lambda.Client {
	var clientOpts []func(*lambda.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *lambda.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return lambda.NewFromConfig(awsCfg, clientOpts...)
}
