package s3post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

// PostPresigner is the slice of the S3 presign client the issuer needs.
type PostPresigner interface {
	PresignPostObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

// Issuer obtains per-upload POST-policy credentials for direct-to-bucket
// uploads. The service itself never touches file bytes.
type Issuer struct {
	presigner PostPresigner
	bucket    string
	ttl       time.Duration
}

type Config struct {
	Bucket   string
	Region   string
	Endpoint string
	TTL      time.Duration
}

func New(ctx context.Context, cfg Config) (*Issuer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Path-style addressing for MinIO/LocalStack endpoints.
			o.UsePathStyle = true
		}
	})

	return NewWithPresigner(s3.NewPresignClient(client), cfg.Bucket, cfg.TTL), nil
}

func NewWithPresigner(presigner PostPresigner, bucket string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Issuer{presigner: presigner, bucket: bucket, ttl: ttl}
}

func (i *Issuer) Issue(ctx context.Context, storageKey string, req domain.UploadRequest) (*domain.UploadCredentials, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(i.bucket),
		Key:         aws.String(storageKey),
		ContentType: aws.String(req.FileType),
	}

	presigned, err := i.presigner.PresignPostObject(ctx, input, func(o *s3.PresignPostOptions) {
		o.Expires = i.ttl
	})
	if err != nil {
		return nil, fmt.Errorf("presign post object: %w", err)
	}

	creds := &domain.UploadCredentials{UploadURL: presigned.URL}
	for name, value := range presigned.Values {
		switch strings.ToLower(name) {
		case "key":
			creds.Key = value
		case "policy":
			creds.Policy = value
		case "x-amz-algorithm":
			creds.XAmzAlgorithm = value
		case "x-amz-credential":
			creds.XAmzCredential = value
		case "x-amz-date":
			creds.XAmzDate = value
		case "x-amz-signature":
			creds.XAmzSignature = value
		case "x-amz-security-token":
			creds.SessionToken = value
		}
	}
	if creds.Key == "" {
		creds.Key = storageKey
	}
	return creds, nil
}
