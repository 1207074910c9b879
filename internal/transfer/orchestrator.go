// Package transfer implements the client side of the upload protocol: it
// executes an UploadPlan against a random-access byte source, PUTting each
// segment directly to storage through its presigned URL, and hands the
// collected receipts to the completer.
package transfer

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/skylift/uploader/internal/upload"
)

// Completer finalizes a multipart upload from the collected receipts.
// *Client satisfies it over HTTP; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req *upload.CompleteRequest) (*upload.CompleteResult, error)
}

// Aborter releases a multipart session. Only needed when AbortOnFailure is
// enabled.
type Aborter interface {
	Abort(ctx context.Context, req *upload.AbortRequest) error
}

// Options tunes one orchestrator. The zero value gives the reference
// behavior: sequential segment uploads, no proactive abort.
type Options struct {
	// HTTPClient used for the segment PUTs; http.DefaultClient when nil
	HTTPClient *http.Client

	// Concurrency bounds parallel segment uploads; values <= 1 upload
	// strictly in plan order
	Concurrency int

	// OnProgress, when set, is called after each fully completed segment
	// with cumulative bytes sent and the total size
	OnProgress func(sent, total int64)

	// Aborter to release the session when a segment fails
	Aborter Aborter

	// AbortOnFailure proactively aborts the multipart session when a
	// segment fails, instead of leaving the reserved parts for the
	// backend's retention sweep
	AbortOnFailure bool
}

// Orchestrator executes upload plans. One orchestrator may run any number of
// uploads; it keeps no per-upload state.
type Orchestrator struct {
	completer Completer
	opts      Options
}

// NewOrchestrator creates an orchestrator that finalizes multipart uploads
// through completer.
func NewOrchestrator(completer Completer, opts Options) *Orchestrator {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Orchestrator{completer: completer, opts: opts}
}

// Upload transfers size bytes from src according to plan. For single plans
// the result carries the object key and the ETag of the PUT; no completion
// call is made. For multipart plans every segment must produce a receipt
// before the completer is invoked.
//
// A failed segment fails the whole operation with an UploadFailedError naming
// the segment; segments already uploaded stay reusable for a retry of the
// same plan until the presigned URLs expire.
func (o *Orchestrator) Upload(ctx context.Context, src io.ReaderAt, size int64, contentType string, plan *upload.UploadPlan) (*upload.CompleteResult, error) {
	switch plan.UploadType {
	case upload.UploadTypeSingle:
		return o.uploadSingle(ctx, src, size, contentType, plan)
	case upload.UploadTypeMultipart:
		return o.uploadMultipart(ctx, src, size, contentType, plan)
	default:
		return nil, &upload.ProtocolError{Msg: fmt.Sprintf("unknown upload type %q", plan.UploadType)}
	}
}

// uploadSingle PUTs the entire byte source to the plan's presigned URL.
func (o *Orchestrator) uploadSingle(ctx context.Context, src io.ReaderAt, size int64, contentType string, plan *upload.UploadPlan) (*upload.CompleteResult, error) {
	progress := newProgress(size)

	etag, err := o.put(ctx, plan.PresignedURL, io.NewSectionReader(src, 0, size), size, contentType)
	if err != nil {
		return nil, &upload.UploadFailedError{Err: err}
	}
	o.report(progress, size)

	return &upload.CompleteResult{
		Success: true,
		Key:     plan.Key,
		ETag:    etag,
	}, nil
}

// uploadMultipart PUTs every segment of the plan, collects the receipts and
// invokes the completer once all of them exist.
func (o *Orchestrator) uploadMultipart(ctx context.Context, src io.ReaderAt, size int64, contentType string, plan *upload.UploadPlan) (*upload.CompleteResult, error) {
	progress := newProgress(size)
	receipts := make([]upload.PartReceipt, len(plan.PresignedURLs))

	uploadPart := func(ctx context.Context, i int) error {
		part := plan.PresignedURLs[i]
		start := int64(part.PartNumber-1) * plan.PartSize
		end := min(int64(part.PartNumber)*plan.PartSize, size)

		etag, err := o.put(ctx, part.PresignedURL, io.NewSectionReader(src, start, end-start), end-start, contentType)
		if err != nil {
			return &upload.UploadFailedError{PartNumber: part.PartNumber, Err: err}
		}
		if etag == "" {
			return &upload.ProtocolError{Msg: fmt.Sprintf("no ETag in response for part %d", part.PartNumber)}
		}

		receipts[i] = upload.PartReceipt{PartNumber: part.PartNumber, ETag: etag}
		o.report(progress, end-start)
		return nil
	}

	var err error
	if o.opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.opts.Concurrency)
		for i := range plan.PresignedURLs {
			g.Go(func() error { return uploadPart(gctx, i) })
		}
		err = g.Wait()
	} else {
		for i := range plan.PresignedURLs {
			if err = uploadPart(ctx, i); err != nil {
				break
			}
		}
	}
	if err != nil {
		o.abortOnFailure(ctx, plan)
		return nil, err
	}

	// Receipts follow plan order, which is already ascending; keep the
	// completion invariant explicit regardless of upload order.
	sort.Slice(receipts, func(i, j int) bool {
		return receipts[i].PartNumber < receipts[j].PartNumber
	})

	return o.completer.Complete(ctx, &upload.CompleteRequest{
		UploadID: plan.UploadID,
		Key:      plan.Key,
		Parts:    receipts,
	})
}

// put issues one presigned PUT and returns the response ETag.
func (o *Orchestrator) put(ctx context.Context, url string, body io.Reader, length int64, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = length
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := o.opts.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("storage returned %s", resp.Status)
	}
	return resp.Header.Get("ETag"), nil
}

// report credits one completed segment.
func (o *Orchestrator) report(progress *Progress, n int64) {
	progress.add(n)
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(progress.Sent(), progress.Total())
	}
}

// abortOnFailure releases the session after a failed segment when the caller
// opted in. Best-effort: a failed abort is logged, the segment error already
// dominates.
func (o *Orchestrator) abortOnFailure(ctx context.Context, plan *upload.UploadPlan) {
	if !o.opts.AbortOnFailure || o.opts.Aborter == nil {
		return
	}
	if err := o.opts.Aborter.Abort(ctx, &upload.AbortRequest{UploadID: plan.UploadID, Key: plan.Key}); err != nil {
		log.Printf("Failed to abort multipart upload %s after segment failure: %v", plan.UploadID, err)
	}
}
