package main

import (
	"context"
	"flag"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/skylift/uploader/internal/transfer"
	"github.com/skylift/uploader/internal/upload"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "base URL of the upload service")
	contentType := flag.String("type", "", "content type of the file (detected from the extension when empty)")
	parallel := flag.Int("parallel", 1, "number of segments to upload concurrently")
	abortOnFailure := flag.Bool("abort-on-failure", false, "abort the multipart session when a segment fails")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Usage: upload [flags] <file>")
	}
	filePath := flag.Arg(0)

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		log.Fatalf("Failed to stat file: %v", err)
	}

	fileType := *contentType
	if fileType == "" {
		fileType = mime.TypeByExtension(filepath.Ext(filePath))
	}
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	ctx := context.Background()
	client := transfer.NewClient(*server, nil)

	// Ask the server how to transfer the file
	plan, err := client.Plan(ctx, &upload.UploadRequest{
		FileName: filepath.Base(filePath),
		FileType: fileType,
		FileSize: info.Size(),
	})
	if err != nil {
		log.Fatalf("Planning failed: %v", err)
	}
	log.Printf("Planned %s upload of %s (%d bytes) as %s", plan.UploadType, filePath, info.Size(), plan.Key)

	orchestrator := transfer.NewOrchestrator(client, transfer.Options{
		Concurrency:    *parallel,
		Aborter:        client,
		AbortOnFailure: *abortOnFailure,
		OnProgress: func(sent, total int64) {
			log.Printf("Uploaded %d/%d bytes (%.1f%%)", sent, total, float64(sent)/float64(total)*100)
		},
	})

	result, err := orchestrator.Upload(ctx, file, info.Size(), fileType, plan)
	if err != nil {
		log.Fatalf("Upload failed: %v", err)
	}

	if result.Location != "" {
		log.Printf("Upload complete: %s (etag %s)", result.Location, result.ETag)
	} else {
		log.Printf("Upload complete: %s (etag %s)", result.Key, result.ETag)
	}
}
