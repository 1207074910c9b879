package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/skylift/uploader/internal/api"
	"github.com/skylift/uploader/internal/upload"
)

// Global variables to hold initialized services
var (
	uploadService *upload.Service
	router        http.Handler
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

	// Initialize upload service with the bucket
	s3Client := s3.NewFromConfig(cfg)
	uploadService = upload.NewServiceFromClient(s3Client, bucket, upload.Policy{})
	router = api.NewHandler(uploadService).Router()

	log.Printf("Upload service initialized for bucket: %s", bucket)
}

// lambdaHandler adapts API Gateway proxy events to the chi router
func lambdaHandler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	// Create a new http.Request from the API Gateway event
	httpReq, err := createHTTPRequest(ctx, req)
	if err != nil {
		log.Printf("Error creating HTTP request: %v", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       "Internal server error",
		}, nil
	}

	// Create a response recorder to capture the router's response
	respRecorder := newResponseRecorder()

	// Process the request through the chi router
	router.ServeHTTP(respRecorder, httpReq)

	// Convert the captured response to an API Gateway response
	headers := make(map[string]string, len(respRecorder.headers))
	for key := range respRecorder.headers {
		headers[key] = respRecorder.headers.Get(key)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: respRecorder.statusCode,
		Headers:    headers,
		Body:       string(respRecorder.body),
	}, nil
}

// createHTTPRequest creates an http.Request from an API Gateway event
func createHTTPRequest(ctx context.Context, req events.APIGatewayProxyRequest) (*http.Request, error) {
	// Create a new HTTP request
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	// Determine the full request path
	path := req.Path
	for param, value := range req.PathParameters {
		path = strings.ReplaceAll(path, "{"+param+"}", value)
	}

	// Create the HTTP request
	httpReq, err := http.NewRequestWithContext(ctx, req.HTTPMethod, path, body)
	if err != nil {
		return nil, err
	}

	// Add query parameters
	if req.QueryStringParameters != nil {
		query := httpReq.URL.Query()
		for param, value := range req.QueryStringParameters {
			query.Add(param, value)
		}
		httpReq.URL.RawQuery = query.Encode()
	}

	// Add headers
	for key, value := range req.Headers {
		httpReq.Header.Add(key, value)
	}

	return httpReq, nil
}

// responseRecorder captures the router's HTTP response
type responseRecorder struct {
	headers    http.Header
	body       []byte
	statusCode int
}

// newResponseRecorder creates a new response recorder
func newResponseRecorder() *responseRecorder {
	return &responseRecorder{
		headers:    make(http.Header),
		statusCode: http.StatusOK, // Default status
	}
}

// Header implements the http.ResponseWriter interface
func (r *responseRecorder) Header() http.Header {
	return r.headers
}

// Write implements the http.ResponseWriter interface
func (r *responseRecorder) Write(body []byte) (int, error) {
	r.body = append(r.body, body...)
	return len(body), nil
}

// WriteHeader implements the http.ResponseWriter interface
func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
}

func main() {
	lambda.Start(lambdaHandler)
}
