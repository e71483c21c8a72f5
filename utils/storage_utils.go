package utils

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config holds the connection settings for the S3-compatible object store.
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
}

// ReceiptStorage archives payout receipts in object storage.
type ReceiptStorage struct {
	cfg    S3Config
	client *s3.S3
}

func NewReceiptStorage(cfg S3Config) (*ReceiptStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is not configured")
	}
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(cfg.Region),
		Endpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKey, cfg.SecretKey, "",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %v", err)
	}
	return &ReceiptStorage{cfg: cfg, client: s3.New(sess)}, nil
}

// UploadReceipt stores the receipt privately and returns its URL.
func (s *ReceiptStorage) UploadReceipt(data []byte, name string) (string, error) {
	_, err := s.client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(name),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
		ACL:           aws.String("private"),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload receipt to S3: %v", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.cfg.Endpoint, s.cfg.Bucket, name), nil
}
