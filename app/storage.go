// Package app stores task image attachments in an S3-compatible bucket.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	appconfig "github.com/zaefsikder/task-app/app/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxImageBytes caps task image uploads at 1 MiB.
const MaxImageBytes = 1 << 20

var (
	storageClient *s3.Client
	storageBucket string
)

// seams for tests
var (
	putObject = func(ctx context.Context, c *s3.Client, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	deleteObject = func(ctx context.Context, c *s3.Client, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

// MustInitStorage wires the S3 client for the task-attachments bucket.
// A missing bucket name leaves storage disabled rather than failing startup,
// mirroring how the db is optional in test runs.
func MustInitStorage() {
	cfg, err := appconfig.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for storage: %v", err)
	}

	if cfg.Storage.Bucket == "" {
		log.Print("STORAGE_BUCKET missing; image attachments disabled")
		return
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.Region),
	}
	if cfg.Storage.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		log.Fatalf("failed to load AWS config for storage: %v", err)
	}

	storageClient = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	storageBucket = cfg.Storage.Bucket
}

// TaskImageKey derives the object key for a task's single image attachment.
// The convention {owner}/{task}.{ext} is what the bucket's access policy
// checks ownership against.
func TaskImageKey(userID, taskID, ext string) string {
	return fmt.Sprintf("%s/%s.%s", userID, taskID, ext)
}

// fileExt extracts a lowercase extension (without the dot) from a filename.
func fileExt(filename string) (string, bool) {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "", false
	}
	return strings.ToLower(filename[idx+1:]), true
}

func uploadTaskImage(ctx context.Context, key, contentType string, body []byte) error {
	if storageClient == nil {
		return errors.New("storage not initialized")
	}
	_, err := putObject(ctx, storageClient, &s3.PutObjectInput{
		Bucket:      aws.String(storageBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}

func deleteTaskImage(ctx context.Context, key string) error {
	if storageClient == nil {
		return errors.New("storage not initialized")
	}
	_, err := deleteObject(ctx, storageClient, &s3.DeleteObjectInput{
		Bucket: aws.String(storageBucket),
		Key:    aws.String(key),
	})
	return err
}
