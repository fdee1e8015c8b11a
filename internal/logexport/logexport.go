// Package logexport archives execution logs to S3-compatible object storage.
package logexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

const contentType = "application/x-ndjson"

// ErrNoLogs is returned when an execution has no log lines to archive.
var ErrNoLogs = errors.New("execution has no logs")

// Config selects the bucket and credentials. Endpoint is empty for AWS
// itself; set it for MinIO or Ceph RGW.
type Config struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	PathStyle bool   `toml:"path_style"`
}

// NewS3Client returns an S3 client for cfg.
func NewS3Client(cfg Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// LogSource fetches execution logs. *gateway.Client satisfies it.
type LogSource interface {
	ExecutionLogs(ctx context.Context, executionID int, level gateway.LogLevel) ([]gateway.LogEntry, error)
}

// Uploader is the S3 call the exporter makes. *s3.Client satisfies it.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Exporter struct {
	source   LogSource
	uploader Uploader
	bucket   string
	prefix   string
	logger   zerolog.Logger
}

func New(source LogSource, uploader Uploader, bucket, prefix string, logger zerolog.Logger) *Exporter {
	return &Exporter{
		source:   source,
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger.With().Str("component", "log-export").Logger(),
	}
}

// Key returns the object key for an execution's logs.
func (e *Exporter) Key(executionID int, level gateway.LogLevel) string {
	name := fmt.Sprintf("executions/%d/logs.jsonl", executionID)
	if level != "" && level != gateway.LogLevelAll {
		name = fmt.Sprintf("executions/%d/logs-%s.jsonl", executionID, level)
	}
	if e.prefix == "" {
		return name
	}
	return e.prefix + "/" + name
}

// Export uploads an execution's log lines as newline-delimited JSON and
// returns the object key.
func (e *Exporter) Export(ctx context.Context, executionID int, level gateway.LogLevel) (string, error) {
	if e.bucket == "" {
		return "", fmt.Errorf("no bucket configured")
	}

	logs, err := e.source.ExecutionLogs(ctx, executionID, level)
	if err != nil {
		return "", fmt.Errorf("fetch logs for execution %d: %w", executionID, err)
	}
	if len(logs) == 0 {
		return "", ErrNoLogs
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range logs {
		if err := enc.Encode(entry); err != nil {
			return "", fmt.Errorf("encode log %d: %w", entry.ID, err)
		}
	}

	key := e.Key(executionID, level)
	_, err = e.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"execution-id": fmt.Sprint(executionID),
			"lines":        fmt.Sprint(len(logs)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", e.bucket, key, err)
	}

	e.logger.Info().
		Int("execution_id", executionID).
		Int("lines", len(logs)).
		Str("bucket", e.bucket).
		Str("key", key).
		Msg("exported execution logs")
	return key, nil
}
