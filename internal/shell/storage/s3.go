package storage

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/artpar/devportal/internal/core/domain"
)

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store implements ObjectStore on an S3 bucket.
type S3Store struct {
	api    s3API
	bucket string
}

// NewS3Store creates an object store over the given bucket.
func NewS3Store(cfg aws.Config, bucket string) *S3Store {
	return &S3Store{
		api:    s3.NewFromConfig(cfg),
		bucket: bucket,
	}
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	// HeadObject reports a missing key as 404, and 403 when the bucket
	// policy hides it. Both mean "not there" for our purposes.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "Forbidden", "AccessDenied":
			return false, nil
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound, http.StatusForbidden:
			return false, nil
		}
	}

	return false, domain.NewUpstreamError("object storage request failed", err)
}
