// Package session provides query configuration and AWS client construction
package session

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BINTHEORY_"

// configLoadFunc is a variable to allow mocking config.LoadDefaultConfig in tests
var configLoadFunc = config.LoadDefaultConfig

// Config holds the configuration for BinTheory
type Config struct {
	CredentialsProvider aws.CredentialsProvider           `json:"-" yaml:"-"`
	AWSConfigOptions    []func(*config.LoadOptions) error `json:"-" yaml:"-"`
	DynamoDBOptions     []func(*dynamodb.Options)         `json:"-" yaml:"-"`
	S3Options           []func(*s3.Options)               `json:"-" yaml:"-"`
	Region              string                            `json:"region" yaml:"region"`
	Endpoint            string                            `json:"endpoint" yaml:"endpoint"`
	AccessKeyID         string                            `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey     string                            `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken        string                            `json:"session_token" yaml:"session_token"`
	// RoleARN, when set, is assumed through STS before any client is built.
	RoleARN              string        `json:"role_arn" yaml:"role_arn"`
	ExternalID           string        `json:"external_id" yaml:"external_id"`
	KeyAttribute         string        `json:"key_attribute" yaml:"key_attribute"`
	SetAttribute         string        `json:"set_attribute" yaml:"set_attribute"`
	ReadsPerSecond       float64       `json:"reads_per_second" yaml:"reads_per_second"`
	HTTPTimeout          time.Duration `json:"http_timeout" yaml:"http_timeout"`
	RoleDuration         time.Duration `json:"role_duration" yaml:"role_duration"`
	MaxRetries           int           `json:"max_retries" yaml:"max_retries"`
	PageSize             int           `json:"page_size" yaml:"page_size"`
	ScanSegments         int           `json:"scan_segments" yaml:"scan_segments"`
	ReadBurst            int           `json:"read_burst" yaml:"read_burst"`
	ConsistentRead       bool          `json:"consistent_read" yaml:"consistent_read"`
	StrictDispatchErrors bool          `json:"strict_dispatch_errors" yaml:"strict_dispatch_errors"`
	EnableMetrics        bool          `json:"enable_metrics" yaml:"enable_metrics"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Region:       "us-east-1",
		KeyAttribute: "pk",
		SetAttribute: "_set",
		HTTPTimeout:  30 * time.Second,
		RoleDuration: time.Hour,
		MaxRetries:   3,
		PageSize:     1000,
		ScanSegments: 1,
	}
}

// LoadConfig reads a YAML file over DefaultConfig and then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from BINTHEORY_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	str("REGION", &c.Region)
	str("ENDPOINT", &c.Endpoint)
	str("ACCESS_KEY_ID", &c.AccessKeyID)
	str("SECRET_ACCESS_KEY", &c.SecretAccessKey)
	str("SESSION_TOKEN", &c.SessionToken)
	str("ROLE_ARN", &c.RoleARN)
	str("EXTERNAL_ID", &c.ExternalID)
	str("KEY_ATTRIBUTE", &c.KeyAttribute)
	str("SET_ATTRIBUTE", &c.SetAttribute)

	if v, ok := lookup(EnvPrefix + "READS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %sREADS_PER_SECOND: %w", EnvPrefix, err)
		}
		c.ReadsPerSecond = f
	}

	for name, dst := range map[string]*int{
		"MAX_RETRIES":   &c.MaxRetries,
		"PAGE_SIZE":     &c.PageSize,
		"SCAN_SEGMENTS": &c.ScanSegments,
		"READ_BURST":    &c.ReadBurst,
	} {
		if err := integer(name, dst); err != nil {
			return err
		}
	}
	for name, dst := range map[string]*bool{
		"CONSISTENT_READ":        &c.ConsistentRead,
		"STRICT_DISPATCH_ERRORS": &c.StrictDispatchErrors,
		"ENABLE_METRICS":         &c.EnableMetrics,
	} {
		if err := boolean(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports settings that cannot produce a working transport.
func (c *Config) Validate() error {
	switch {
	case c.PageSize < 0:
		return fmt.Errorf("page_size must not be negative")
	case c.ScanSegments < 0:
		return fmt.Errorf("scan_segments must not be negative")
	case c.ReadsPerSecond < 0:
		return fmt.Errorf("reads_per_second must not be negative")
	case (c.AccessKeyID == "") != (c.SecretAccessKey == ""):
		return fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return nil
}

// IsLambdaEnvironment reports whether the process runs inside AWS Lambda.
func IsLambdaEnvironment() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// Session manages the AWS configuration and the clients built from it
type Session struct {
	config    *Config
	dynamo    *dynamodb.Client
	s3        *s3.Client
	awsConfig aws.Config
}

// NewSession creates a new session with the given configuration
func NewSession(ctx context.Context, cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}

	options := make([]func(*config.LoadOptions) error, 0, len(cfg.AWSConfigOptions)+5)

	if cfg.Region != "" {
		options = append(options, config.WithRegion(cfg.Region))
	}

	switch {
	case cfg.CredentialsProvider != nil:
		options = append(options, config.WithCredentialsProvider(cfg.CredentialsProvider))
	case cfg.AccessKeyID != "":
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	maxAttempts := cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	retryMode := aws.RetryModeStandard
	if IsLambdaEnvironment() {
		retryMode = aws.RetryModeAdaptive
	}
	options = append(options, config.WithRetryMode(retryMode))
	options = append(options, config.WithRetryMaxAttempts(maxAttempts))

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	options = append(options, config.WithHTTPClient(httpClient))

	options = append(options, cfg.AWSConfigOptions...)

	awsConfig, err := configLoadFunc(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if awsConfig.Retryer == nil {
		awsConfig.Retryer = func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxAttempts
			})
		}
	}

	if cfg.RoleARN != "" {
		awsConfig.Credentials = aws.NewCredentialsCache(assumeRoleProvider(awsConfig, cfg))
	}

	dynamoOptions := make([]func(*dynamodb.Options), 0, 1+len(cfg.DynamoDBOptions))
	dynamoOptions = append(dynamoOptions, func(o *dynamodb.Options) {
		o.Region = awsConfig.Region
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if o.Retryer == nil {
			o.Retryer = awsConfig.Retryer()
		}
		if o.HTTPClient == nil {
			o.HTTPClient = httpClient
		}
	})
	dynamoOptions = append(dynamoOptions, cfg.DynamoDBOptions...)

	s3Options := make([]func(*s3.Options), 0, 1+len(cfg.S3Options))
	s3Options = append(s3Options, func(o *s3.Options) {
		o.Region = awsConfig.Region
		if o.HTTPClient == nil {
			o.HTTPClient = httpClient
		}
	})
	s3Options = append(s3Options, cfg.S3Options...)

	return &Session{
		config:    cfg,
		awsConfig: awsConfig,
		dynamo:    dynamodb.NewFromConfig(awsConfig, dynamoOptions...),
		s3:        s3.NewFromConfig(awsConfig, s3Options...),
	}, nil
}

func assumeRoleProvider(awsConfig aws.Config, cfg *Config) aws.CredentialsProvider {
	duration := cfg.RoleDuration
	if duration <= 0 {
		duration = time.Hour
	}
	return stscreds.NewAssumeRoleProvider(sts.NewFromConfig(awsConfig), cfg.RoleARN, func(o *stscreds.AssumeRoleOptions) {
		if cfg.ExternalID != "" {
			o.ExternalID = aws.String(cfg.ExternalID)
		}
		o.RoleSessionName = "bintheory"
		o.Duration = duration
	})
}

// DynamoDB returns the DynamoDB client
func (s *Session) DynamoDB() (*dynamodb.Client, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if s.dynamo == nil {
		return nil, fmt.Errorf("DynamoDB client is nil")
	}
	return s.dynamo, nil
}

// S3 returns the S3 client
func (s *Session) S3() (*s3.Client, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if s.s3 == nil {
		return nil, fmt.Errorf("S3 client is nil")
	}
	return s.s3, nil
}

// Config returns the session configuration
func (s *Session) Config() *Config {
	return s.config
}

// AWSConfig returns the AWS configuration
func (s *Session) AWSConfig() aws.Config {
	return s.awsConfig
}
