package s3post

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nkoval/form-autofill/internal/core/domain"
)

type presignerFake struct {
	request *s3.PresignedPostRequest
	err     error

	gotBucket string
	gotKey    string
	gotTTL    time.Duration
}

func (f *presignerFake) PresignPostObject(_ context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error) {
	if params.Bucket != nil {
		f.gotBucket = *params.Bucket
	}
	if params.Key != nil {
		f.gotKey = *params.Key
	}
	opts := &s3.PresignPostOptions{}
	for _, fn := range optFns {
		fn(opts)
	}
	f.gotTTL = opts.Expires
	if f.err != nil {
		return nil, f.err
	}
	return f.request, nil
}

func TestIssueMapsPostPolicyFields(t *testing.T) {
	fake := &presignerFake{
		request: &s3.PresignedPostRequest{
			URL: "https://uploads.example/bucket",
			Values: map[string]string{
				"key":                  "up-1_invoice.pdf",
				"policy":               "cG9saWN5",
				"X-Amz-Algorithm":      "AWS4-HMAC-SHA256",
				"X-Amz-Credential":     "AKIA/20260829/eu-west-1/s3/aws4_request",
				"X-Amz-Date":           "20260829T120000Z",
				"X-Amz-Signature":      "deadbeef",
				"X-Amz-Security-Token": "token",
			},
		},
	}
	issuer := NewWithPresigner(fake, "uploads", 5*time.Minute)

	creds, err := issuer.Issue(context.Background(), "up-1_invoice.pdf", domain.UploadRequest{
		FileName: "invoice.pdf",
		FileSize: 100,
		FileType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if creds.UploadURL != "https://uploads.example/bucket" {
		t.Fatalf("unexpected upload url %q", creds.UploadURL)
	}
	if creds.Key != "up-1_invoice.pdf" || creds.Policy != "cG9saWN5" {
		t.Fatalf("unexpected key/policy %q/%q", creds.Key, creds.Policy)
	}
	if creds.XAmzAlgorithm != "AWS4-HMAC-SHA256" || creds.XAmzSignature != "deadbeef" {
		t.Fatalf("unexpected signature fields %+v", creds)
	}
	if creds.SessionToken != "token" {
		t.Fatalf("unexpected session token %q", creds.SessionToken)
	}
	if fake.gotBucket != "uploads" || fake.gotKey != "up-1_invoice.pdf" {
		t.Fatalf("unexpected presign input %q/%q", fake.gotBucket, fake.gotKey)
	}
	if fake.gotTTL != 5*time.Minute {
		t.Fatalf("unexpected ttl %v", fake.gotTTL)
	}
}

func TestIssueDefaultsTTLAndKey(t *testing.T) {
	fake := &presignerFake{
		request: &s3.PresignedPostRequest{
			URL:    "https://uploads.example/bucket",
			Values: map[string]string{},
		},
	}
	issuer := NewWithPresigner(fake, "uploads", 0)

	creds, err := issuer.Issue(context.Background(), "up-2_a.pdf", domain.UploadRequest{FileType: "application/pdf"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if creds.Key != "up-2_a.pdf" {
		t.Fatalf("expected storage key fallback, got %q", creds.Key)
	}
	if fake.gotTTL != 15*time.Minute {
		t.Fatalf("expected default ttl, got %v", fake.gotTTL)
	}
}

func TestIssueSurfacesPresignError(t *testing.T) {
	fake := &presignerFake{err: errors.New("signing failed")}
	issuer := NewWithPresigner(fake, "uploads", time.Minute)

	_, err := issuer.Issue(context.Background(), "k", domain.UploadRequest{FileType: "application/pdf"})
	if err == nil {
		t.Fatalf("expected error")
	}
}
