package upload

import (
	"context"
	"log"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// validateCompleteRequest checks the completion request shape. Whether the
// receipts actually cover the reserved part numbers is enforced by the
// backend, which rejects the completion call on any mismatch.
func validateCompleteRequest(req *CompleteRequest) error {
	if req.UploadID == "" {
		return validationErrorf("uploadId is required")
	}
	if req.Key == "" {
		return validationErrorf("key is required")
	}
	if len(req.Parts) == 0 {
		return validationErrorf("parts must not be empty")
	}
	return nil
}

// convertReceipts maps receipts to the SDK's completed-part type, sorted by
// part number. Callers may submit receipts in any order but S3 requires the
// completion list ascending.
func convertReceipts(parts []PartReceipt) []types.CompletedPart {
	completed := make([]types.CompletedPart, len(parts))
	for i, part := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(part.PartNumber),
		}
	}
	sort.Slice(completed, func(i, j int) bool {
		return aws.ToInt32(completed[i].PartNumber) < aws.ToInt32(completed[j].PartNumber)
	})
	return completed
}

// Complete instructs the backend to assemble the final object from the
// supplied receipts. If the backend rejects the completion, the session is
// aborted best-effort before the error is surfaced, so uploaded-but-unfinished
// parts do not keep accumulating billable storage. A failure of the abort
// itself is only logged; the completion error dominates.
func (s *Service) Complete(ctx context.Context, req *CompleteRequest) (*CompleteResult, error) {
	if err := validateCompleteRequest(req); err != nil {
		return nil, err
	}

	completeResp, err := s.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(req.Key),
		UploadId: aws.String(req.UploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: convertReceipts(req.Parts),
		},
	})
	if err != nil {
		if abortErr := s.Abort(ctx, &AbortRequest{UploadID: req.UploadID, Key: req.Key}); abortErr != nil {
			log.Printf("Failed to abort multipart upload %s after completion error: %v", req.UploadID, abortErr)
		}
		return nil, &BackendError{Op: "complete multipart upload", Err: err}
	}

	result := &CompleteResult{
		Success:  true,
		Location: aws.ToString(completeResp.Location),
		Key:      req.Key,
		ETag:     aws.ToString(completeResp.ETag),
	}
	if completeResp.Key != nil {
		result.Key = aws.ToString(completeResp.Key)
	}
	return result, nil
}

// Abort cancels an in-progress multipart session and releases its reserved
// backend state.
func (s *Service) Abort(ctx context.Context, req *AbortRequest) error {
	if req.UploadID == "" {
		return validationErrorf("uploadId is required")
	}
	if req.Key == "" {
		return validationErrorf("key is required")
	}

	_, err := s.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(req.Key),
		UploadId: aws.String(req.UploadID),
	})
	if err != nil {
		return &BackendError{Op: "abort multipart upload", Err: err}
	}
	return nil
}
