// Package storage downloads image objects addressed by s3:// URIs using
// anonymous credentials, recording a checksum while streaming.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mik-tf/isobootmaker/pkg/errors"
)

// Client provides S3 image downloads.
type Client struct {
	s3Client *s3.Client
}

// NewClient creates an S3 client for anonymous access in region.
func NewClient(ctx context.Context, region string) (*Client, error) {
	slog.Info("s3_client_init", "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{s3Client: s3.NewFromConfig(cfg)}, nil
}

// ParseURI splits an s3://bucket/key URI into its bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URI: %s", uri)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URI must be s3://bucket/key: %s", uri)
	}
	return bucket, key, nil
}

// DownloadURI fetches the object named by uri into destDir. The local file
// is named after the key's final path segment. Returns the local path and
// the sha256 of the streamed bytes.
func (c *Client) DownloadURI(ctx context.Context, uri, destDir string) (string, string, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", "", err
	}

	localPath := filepath.Join(destDir, path.Base(key))
	slog.Info("s3_download_start", "bucket", bucket, "key", key, "dest", localPath)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_get_object_failed", "bucket", bucket, "key", key, "error", err)
		return "", "", errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("local_file_creation_failed", "path", localPath, "error", err)
		return "", "", errors.Wrap(err, "failed to create local file")
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), result.Body)
	if err != nil {
		slog.Error("s3_download_failed", "bucket", bucket, "key", key, "error", err)
		return "", "", errors.Wrap(err, "failed to download object")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("s3_download_complete",
		"bucket", bucket,
		"key", key,
		"size_mb", size/1024/1024,
		"sha256", checksum[:16]+"...",
	)

	return localPath, checksum, nil
}
