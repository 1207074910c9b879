package upload

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// validatePlanRequest checks the caller-supplied file metadata.
func validatePlanRequest(req *UploadRequest) error {
	if req.FileName == "" {
		return validationErrorf("fileName is required")
	}
	if req.FileType == "" {
		return validationErrorf("fileType is required")
	}
	if req.FileSize < 0 {
		return validationErrorf("fileSize must not be negative")
	}
	return nil
}

// Plan decides how the described file should be transferred and issues the
// presigned URLs for it. Files at or below the multipart threshold (or with
// no reported size) get a single presigned PUT; larger files get a multipart
// plan with one upload-part URL per segment.
//
// Planning is deliberately not idempotent: every call derives a fresh random
// key, so re-planning the same file targets a new object.
func (s *Service) Plan(ctx context.Context, req *UploadRequest) (*UploadPlan, error) {
	if err := validatePlanRequest(req); err != nil {
		return nil, err
	}

	key := objectKey(s.newKeyID(), req.FileName)

	if req.FileSize > s.policy.MultipartThreshold {
		return s.planMultipart(ctx, req, key)
	}
	return s.planSingle(ctx, req, key)
}

// planSingle signs one whole-object PUT scoped to the computed key.
func (s *Service) planSingle(ctx context.Context, req *UploadRequest, key string) (*UploadPlan, error) {
	presigned, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.FileType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.policy.PresignTTL
	})
	if err != nil {
		return nil, &BackendError{Op: "presign put object", Err: err}
	}

	return &UploadPlan{
		UploadType:   UploadTypeSingle,
		Key:          key,
		PresignedURL: presigned.URL,
	}, nil
}

// planMultipart initiates a multipart session and signs one upload-part URL
// per segment. The session it reserves must eventually be completed or
// aborted; the backend garbage-collects abandoned ones after its retention
// window.
func (s *Service) planMultipart(ctx context.Context, req *UploadRequest, key string) (*UploadPlan, error) {
	createResp, err := s.s3Client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.FileType),
	})
	if err != nil {
		return nil, &BackendError{Op: "create multipart upload", Err: err}
	}
	uploadID := aws.ToString(createResp.UploadId)

	numParts := (req.FileSize + s.policy.PartSize - 1) / s.policy.PartSize

	urls, err := s.presignParts(ctx, key, uploadID, int32(numParts))
	if err != nil {
		// The session was already reserved; release it rather than leave it
		// for the backend's retention sweep.
		if _, abortErr := s.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(s.bucket),
			Key:      aws.String(key),
			UploadId: aws.String(uploadID),
		}); abortErr != nil {
			log.Printf("Failed to abort multipart upload %s after presign error: %v", uploadID, abortErr)
		}
		return nil, err
	}

	return &UploadPlan{
		UploadType:    UploadTypeMultipart,
		Key:           key,
		UploadID:      uploadID,
		PartSize:      s.policy.PartSize,
		PresignedURLs: urls,
	}, nil
}

// presignParts signs the PUT of every segment 1..numParts, each bound to the
// session's (uploadId, key, partNumber).
func (s *Service) presignParts(ctx context.Context, key, uploadID string, numParts int32) ([]PartURL, error) {
	urls := make([]PartURL, 0, numParts)

	for partNumber := int32(1); partNumber <= numParts; partNumber++ {
		presigned, err := s.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(partNumber),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = s.policy.PresignTTL
		})
		if err != nil {
			return nil, &BackendError{
				Op:  fmt.Sprintf("presign upload part %d", partNumber),
				Err: err,
			}
		}

		urls = append(urls, PartURL{
			PartNumber:   partNumber,
			PresignedURL: presigned.URL,
		})
	}

	return urls, nil
}
