// Package archive retains the original uploaded workbook bytes in
// S3-compatible storage. The ledger is authoritative; the archive exists so a
// disputed day can be re-checked against what the employee actually sent.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"teleshop-backend/internal/config"
)

type Archiver struct {
	client *s3.Client
	bucket string
}

// New builds an archiver from config. Returns nil when archiving is disabled;
// callers treat a nil archiver as a no-op.
func New(cfg *config.Config) *Archiver {
	if !cfg.Archive.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Archive.Region),
	)
	if err != nil {
		log.Printf("[Archive] client config failed, archiving disabled: %v", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
		}
	})
	return &Archiver{client: client, bucket: cfg.Archive.Bucket}
}

// StoreUpload writes the workbook bytes under a key derived from the upload's
// identity plus a random suffix, so re-uploads never overwrite each other.
// Returns the object key.
func (a *Archiver) StoreUpload(ctx context.Context, employeeID int, date string, data []byte) (string, error) {
	if a == nil {
		return "", nil
	}

	key := fmt.Sprintf("uploads/%s/%d/%s-%s.xlsx",
		date, employeeID, time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
	})
	if err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}
	return key, nil
}
