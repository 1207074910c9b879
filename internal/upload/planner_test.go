package upload

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanValidation(t *testing.T) {
	svc := newTestService(&mockS3Client{}, &mockPresigner{}, Policy{})

	tests := []struct {
		name string
		req  UploadRequest
	}{
		{"missing file name", UploadRequest{FileType: "text/plain", FileSize: 10}},
		{"missing file type", UploadRequest{FileName: "a.txt", FileSize: 10}},
		{"negative size", UploadRequest{FileName: "a.txt", FileType: "text/plain", FileSize: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Plan(context.Background(), &tt.req)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestPlanSingleSmallFile(t *testing.T) {
	var signedInput *s3.PutObjectInput
	presigner := &mockPresigner{
		PresignPutObjectFunc: func(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			signedInput = params
			return &v4.PresignedHTTPRequest{URL: "https://storage.test/signed-put"}, nil
		},
	}
	svc := newTestService(&mockS3Client{}, presigner, Policy{})

	plan, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "a.txt",
		FileType: "text/plain",
		FileSize: 1000,
	})
	require.NoError(t, err)

	assert.Equal(t, UploadTypeSingle, plan.UploadType)
	assert.Equal(t, "uploads/key00001-a.txt", plan.Key)
	assert.Equal(t, "https://storage.test/signed-put", plan.PresignedURL)
	assert.Empty(t, plan.UploadID)
	assert.Empty(t, plan.PresignedURLs)

	require.NotNil(t, signedInput)
	assert.Equal(t, "test-bucket", aws.ToString(signedInput.Bucket))
	assert.Equal(t, "text/plain", aws.ToString(signedInput.ContentType))
}

func TestPlanSingleWhenSizeUnknown(t *testing.T) {
	svc := newTestService(&mockS3Client{}, &mockPresigner{}, Policy{})

	plan, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "a.txt",
		FileType: "text/plain",
	})
	require.NoError(t, err)
	assert.Equal(t, UploadTypeSingle, plan.UploadType)
}

func TestPlanThresholdDecision(t *testing.T) {
	svc := newTestService(&mockS3Client{}, &mockPresigner{}, Policy{})

	tests := []struct {
		name     string
		fileSize int64
		want     string
	}{
		{"below threshold", DefaultMultipartThreshold - 1, UploadTypeSingle},
		{"at threshold", DefaultMultipartThreshold, UploadTypeSingle},
		{"above threshold", DefaultMultipartThreshold + 1, UploadTypeMultipart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := svc.Plan(context.Background(), &UploadRequest{
				FileName: "big.bin",
				FileType: "application/octet-stream",
				FileSize: tt.fileSize,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, plan.UploadType)
		})
	}
}

func TestPlanMultipart(t *testing.T) {
	svc := newTestService(&mockS3Client{}, &mockPresigner{}, Policy{})

	// 150 MiB file at 10 MiB parts: exactly 15 segments, the last one full
	const fileSize = 157286400
	plan, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "v.mp4",
		FileType: "video/mp4",
		FileSize: fileSize,
	})
	require.NoError(t, err)

	assert.Equal(t, UploadTypeMultipart, plan.UploadType)
	assert.Equal(t, "test-upload-id", plan.UploadID)
	assert.Equal(t, int64(DefaultPartSize), plan.PartSize)
	require.Equal(t, 15, plan.NumParts())

	// Part numbers must be exactly 1..numParts, strictly increasing
	for i, part := range plan.PresignedURLs {
		assert.Equal(t, int32(i+1), part.PartNumber)
		assert.Contains(t, part.PresignedURL, fmt.Sprintf("partNumber=%d", i+1))
		assert.Contains(t, part.PresignedURL, "uploadId=test-upload-id")
	}

	// Segment ranges must partition [0, fileSize) exactly
	var offset int64
	for _, part := range plan.PresignedURLs {
		start := int64(part.PartNumber-1) * plan.PartSize
		end := min(int64(part.PartNumber)*plan.PartSize, fileSize)
		assert.Equal(t, offset, start)
		offset = end
	}
	assert.Equal(t, int64(fileSize), offset)
}

func TestPlanMultipartPartCount(t *testing.T) {
	svc := newTestService(&mockS3Client{}, &mockPresigner{}, Policy{})

	tests := []struct {
		fileSize  int64
		wantParts int
	}{
		{DefaultMultipartThreshold + 1, 11},          // 100 MiB + 1 byte: final 1-byte part
		{15 * DefaultPartSize, 15},                   // exact multiple
		{15*DefaultPartSize + 1, 16},                 // one byte spills into part 16
		{2 * DefaultMultipartThreshold, 20},          // 200 MiB
	}

	for _, tt := range tests {
		plan, err := svc.Plan(context.Background(), &UploadRequest{
			FileName: "big.bin",
			FileType: "application/octet-stream",
			FileSize: tt.fileSize,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.wantParts, plan.NumParts(), "fileSize=%d", tt.fileSize)
	}
}

func TestPlanKeysNotIdempotent(t *testing.T) {
	svc := NewService(&mockS3Client{}, &mockPresigner{}, "test-bucket", Policy{})

	req := UploadRequest{FileName: "a.txt", FileType: "text/plain", FileSize: 1000}
	first, err := svc.Plan(context.Background(), &req)
	require.NoError(t, err)
	second, err := svc.Plan(context.Background(), &req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
}

func TestPlanCustomPolicy(t *testing.T) {
	policy := Policy{
		MultipartThreshold: 1024,
		PartSize:           256,
		PresignTTL:         time.Minute,
	}
	svc := newTestService(&mockS3Client{}, &mockPresigner{}, policy)

	plan, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "a.bin",
		FileType: "application/octet-stream",
		FileSize: 1025,
	})
	require.NoError(t, err)
	assert.Equal(t, UploadTypeMultipart, plan.UploadType)
	assert.Equal(t, int64(256), plan.PartSize)
	assert.Equal(t, 5, plan.NumParts())
}

func TestPlanMultipartCreateFails(t *testing.T) {
	s3Mock := &mockS3Client{
		CreateMultipartUploadFunc: func(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
			return nil, errors.New("boom")
		},
	}
	svc := newTestService(s3Mock, &mockPresigner{}, Policy{})

	_, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "big.bin",
		FileType: "application/octet-stream",
		FileSize: DefaultMultipartThreshold + 1,
	})
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.False(t, IsValidation(err))
}

func TestPlanMultipartPresignFailureAbortsSession(t *testing.T) {
	aborted := false
	s3Mock := &mockS3Client{
		AbortMultipartUploadFunc: func(_ context.Context, params *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
			aborted = true
			assert.Equal(t, "test-upload-id", aws.ToString(params.UploadId))
			return &s3.AbortMultipartUploadOutput{}, nil
		},
	}
	presigner := &mockPresigner{
		PresignUploadPartFunc: func(_ context.Context, params *s3.UploadPartInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			if aws.ToInt32(params.PartNumber) == 3 {
				return nil, errors.New("signing failed")
			}
			return &v4.PresignedHTTPRequest{URL: "https://storage.test/signed"}, nil
		},
	}
	svc := newTestService(s3Mock, presigner, Policy{})

	_, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "big.bin",
		FileType: "application/octet-stream",
		FileSize: DefaultMultipartThreshold + 1,
	})
	require.Error(t, err)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.True(t, aborted, "half-planned session must be aborted")
}

func TestPlanSinglePresignFails(t *testing.T) {
	presigner := &mockPresigner{
		PresignPutObjectFunc: func(context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
			return nil, errors.New("signing failed")
		},
	}
	svc := newTestService(&mockS3Client{}, presigner, Policy{})

	_, err := svc.Plan(context.Background(), &UploadRequest{
		FileName: "a.txt",
		FileType: "text/plain",
		FileSize: 1000,
	})

	var be *BackendError
	require.ErrorAs(t, err, &be)
}
