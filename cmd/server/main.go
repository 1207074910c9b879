package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/skylift/uploader/internal/api"
	"github.com/skylift/uploader/internal/upload"
)

// Global variables to hold initialized services
var (
	uploadService *upload.Service
)

// Init initializes the AWS clients and services
func init() {
	// Load AWS configuration
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	// Get the upload bucket name from environment variable
	bucket := os.Getenv("UPLOAD_BUCKET_NAME")
	if bucket == "" {
		log.Fatal("UPLOAD_BUCKET_NAME environment variable not set")
	}

	// Initialize upload service with the bucket and policy overrides
	s3Client := s3.NewFromConfig(cfg)
	uploadService = upload.NewServiceFromClient(s3Client, bucket, policyFromEnv())

	log.Printf("Upload service initialized for bucket: %s", bucket)
}

// policyFromEnv reads optional planning policy overrides. Unset or invalid
// values fall back to the reference defaults.
func policyFromEnv() upload.Policy {
	var policy upload.Policy

	if v := os.Getenv("UPLOAD_MULTIPART_THRESHOLD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid UPLOAD_MULTIPART_THRESHOLD %q: %v", v, err)
		}
		policy.MultipartThreshold = n
	}
	if v := os.Getenv("UPLOAD_PART_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			log.Fatalf("Invalid UPLOAD_PART_SIZE %q: %v", v, err)
		}
		policy.PartSize = n
	}
	if v := os.Getenv("PRESIGN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid PRESIGN_TTL %q: %v", v, err)
		}
		policy.PresignTTL = d
	}

	return policy
}

func main() {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	router := api.NewHandler(uploadService).Router()

	log.Printf("Listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
