package upload

// Upload type discriminator returned in plan responses.
const (
	UploadTypeSingle    = "single"
	UploadTypeMultipart = "multipart"
)

// UploadRequest describes the file a client wants to upload.
// FileSize is optional; zero means the caller did not report a size.
type UploadRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize,omitempty"`
}

// PartURL is one presigned upload-part URL of a multipart plan.
type PartURL struct {
	PartNumber   int32  `json:"partNumber"`
	PresignedURL string `json:"presignedUrl"`
}

// UploadPlan is the planner's answer: either a single presigned PUT
// (UploadType "single", PresignedURL set) or a multipart plan
// (UploadType "multipart", UploadID/PartSize/PresignedURLs set).
type UploadPlan struct {
	UploadType    string    `json:"uploadType"`
	Key           string    `json:"key"`
	PresignedURL  string    `json:"presignedUrl,omitempty"`
	UploadID      string    `json:"uploadId,omitempty"`
	PartSize      int64     `json:"partSize,omitempty"`
	PresignedURLs []PartURL `json:"presignedUrls,omitempty"`
}

// NumParts returns how many segments a multipart plan carries.
func (p *UploadPlan) NumParts() int {
	return len(p.PresignedURLs)
}

// PartReceipt is the (partNumber, ETag) pair returned by storage for one
// uploaded segment. The JSON field names match what S3 clients conventionally
// send back and are required verbatim at completion time.
type PartReceipt struct {
	PartNumber int32  `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// CompleteRequest asks the completer to assemble the final object from the
// uploaded segments. Parts may arrive in any order; part numbers are explicit.
type CompleteRequest struct {
	UploadID string        `json:"uploadId"`
	Key      string        `json:"key"`
	Parts    []PartReceipt `json:"parts"`
}

// CompleteResult reports a finalized multipart object. ETag is the composite
// multipart ETag computed by the backend, not a hash of the whole file.
type CompleteResult struct {
	Success  bool   `json:"success"`
	Location string `json:"location"`
	Key      string `json:"key"`
	ETag     string `json:"etag"`
}

// AbortRequest releases the backend state of an unfinished multipart session.
type AbortRequest struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}
