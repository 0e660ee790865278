// Package storage archives produced report artifacts to Amazon S3.
package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/report-runner/internal/config"
	"github.com/ignite/report-runner/internal/domain"
)

// PutObjectAPI is the subset of the S3 client used by Archiver.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads artifacts to s3://bucket/prefix/<report_type>/<file>.
type Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewArchiver creates an archiver using the default AWS credential chain, or
// the named shared profile when one is configured.
func NewArchiver(ctx context.Context, cfg config.ArchiveConfig) (*Archiver, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewArchiverWithClient(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix), nil
}

// NewArchiverWithClient wraps an existing client.
func NewArchiverWithClient(client PutObjectAPI, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a local artifact.
func (a *Archiver) Key(reportType domain.ReportType, localPath string) string {
	return path.Join(a.prefix, string(reportType), filepath.Base(localPath))
}

// Archive uploads the file at localPath and returns its s3:// URI.
func (a *Archiver) Archive(ctx context.Context, reportType domain.ReportType, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()

	key := a.Key(reportType, localPath)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("putting object to S3 bucket %s: %w", a.bucket, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

var artifactTypes = map[string]string{
	".csv": "text/csv; charset=utf-8",
	".pdf": "application/pdf",
}

func contentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := artifactTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
