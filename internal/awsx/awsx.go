// Package awsx builds the AWS SDK clients from daemon configuration.
package awsx

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"costguard/internal/config"
)

// Clients bundles every AWS client the daemon touches. They share one
// aws.Config, so credentials and region resolve once.
type Clients struct {
	EC2        *ec2.Client
	RDS        *rds.Client
	SNS        *sns.Client
	S3         *s3.Client
	CloudWatch *cloudwatch.Client
}

// New resolves credentials and region and constructs the clients. Explicit
// config values win; everything else falls back to the SDK default chain
// (env, shared config, instance role).
func New(ctx context.Context, cfg config.AWSConfig) (*Clients, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if r := strings.TrimSpace(cfg.Region); r != "" {
		opts = append(opts, awsconfig.WithRegion(r))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	withEndpoint := func(set func(string)) {
		if endpoint != "" {
			set(endpoint)
		}
	}

	c := &Clients{}
	c.EC2 = ec2.NewFromConfig(awsCfg, func(o *ec2.Options) {
		withEndpoint(func(ep string) { o.BaseEndpoint = aws.String(ep) })
	})
	c.RDS = rds.NewFromConfig(awsCfg, func(o *rds.Options) {
		withEndpoint(func(ep string) { o.BaseEndpoint = aws.String(ep) })
	})
	c.SNS = sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		withEndpoint(func(ep string) { o.BaseEndpoint = aws.String(ep) })
	})
	c.S3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		withEndpoint(func(ep string) {
			o.BaseEndpoint = aws.String(ep)
			// Localstack and minio want path-style addressing.
			o.UsePathStyle = true
		})
	})
	c.CloudWatch = cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		withEndpoint(func(ep string) { o.BaseEndpoint = aws.String(ep) })
	})
	return c, nil
}
