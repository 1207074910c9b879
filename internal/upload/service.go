// Package upload implements the server side of the direct-to-S3 upload
// protocol: planning (single presigned PUT or a multipart plan with one
// presigned URL per segment) and multipart completion with abort-on-failure.
// File bytes never pass through this service; clients PUT them straight to
// storage using the issued URLs.
package upload

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Reference policy values. All three are configurable through Policy; the
// decision rule (multipart iff size > threshold) is fixed.
const (
	// DefaultMultipartThreshold is the file size above which uploads are
	// planned as multipart (100 MiB)
	DefaultMultipartThreshold = 100 * 1024 * 1024

	// DefaultPartSize is the fixed segment size of multipart plans (10 MiB)
	DefaultPartSize = 10 * 1024 * 1024

	// DefaultPresignTTL is how long issued presigned URLs stay valid
	DefaultPresignTTL = time.Hour
)

// Policy carries the tunable planning constants.
type Policy struct {
	MultipartThreshold int64
	PartSize           int64
	PresignTTL         time.Duration
}

// withDefaults fills unset fields with the reference values.
func (p Policy) withDefaults() Policy {
	if p.MultipartThreshold <= 0 {
		p.MultipartThreshold = DefaultMultipartThreshold
	}
	if p.PartSize <= 0 {
		p.PartSize = DefaultPartSize
	}
	if p.PresignTTL <= 0 {
		p.PresignTTL = DefaultPresignTTL
	}
	return p
}

// Service is the stateless planner/completer pair. Every invocation is
// independent; the storage backend holds all multipart session state, so
// concurrent calls for different keys or upload IDs need no coordination here.
type Service struct {
	s3Client  S3API
	presigner Presigner
	bucket    string
	policy    Policy

	// newKeyID generates the random key prefix; injected so tests can pin it
	newKeyID func() string
}

// NewService creates an upload service for one bucket.
func NewService(client S3API, presigner Presigner, bucket string, policy Policy) *Service {
	return &Service{
		s3Client:  client,
		presigner: presigner,
		bucket:    bucket,
		policy:    policy.withDefaults(),
		newKeyID:  defaultKeyID,
	}
}

// NewServiceFromClient wires a Service directly from an *s3.Client, deriving
// the presigner from the same client.
func NewServiceFromClient(client *s3.Client, bucket string, policy Policy) *Service {
	return NewService(client, s3.NewPresignClient(client), bucket, policy)
}

// Policy returns the effective planning constants.
func (s *Service) Policy() Policy {
	return s.policy
}
