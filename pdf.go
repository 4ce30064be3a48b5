package pdfrelay

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Server endpoints consumed by the conversion client.
const (
	endpointConvertHTML = "/api/v1/convert/html"
	endpointConvertURL  = "/api/v1/convert/url"
	endpointJobStatus   = "/api/v1/jobs/%s/status"
	endpointJobDownload = "/api/v1/jobs/%s/download"
	endpointProfile     = "/api/v1/me"
	endpointLogout      = "/api/v1/logout"
)

// headerIdempotencyKey lets the server drop accidental duplicate
// submissions of the same conversion.
const headerIdempotencyKey = "Idempotency-Key"

// PageMargins are the page margins of the generated document, as CSS
// lengths.
type PageMargins struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

// GenerateOptions control PDF generation. Nil pointer fields fall back to
// the defaults; merging is explicit, never a dynamic spread.
type GenerateOptions struct {
	Format          string       `json:"format,omitempty"`
	Orientation     string       `json:"orientation,omitempty"`
	Margins         *PageMargins `json:"margins,omitempty"`
	PrintBackground *bool        `json:"printBackground,omitempty"`
	Scale           *float64     `json:"scale,omitempty"`
	Compress        *bool        `json:"compress,omitempty"`
}

// DefaultGenerateOptions returns the server-recommended generation
// defaults.
func DefaultGenerateOptions() GenerateOptions {
	printBackground := true
	compress := true
	scale := 1.0
	return GenerateOptions{
		Format:      "A4",
		Orientation: "portrait",
		Margins: &PageMargins{
			Top:    "10mm",
			Right:  "10mm",
			Bottom: "10mm",
			Left:   "10mm",
		},
		PrintBackground: &printBackground,
		Scale:           &scale,
		Compress:        &compress,
	}
}

// mergeGenerateOptions overlays the caller's overrides on the defaults.
// Pure function; neither argument is mutated.
func mergeGenerateOptions(base GenerateOptions, override *GenerateOptions) GenerateOptions {
	out := base
	if override == nil {
		return out
	}
	if override.Format != "" {
		out.Format = override.Format
	}
	if override.Orientation != "" {
		out.Orientation = override.Orientation
	}
	if override.Margins != nil {
		margins := *override.Margins
		out.Margins = &margins
	}
	if override.PrintBackground != nil {
		out.PrintBackground = override.PrintBackground
	}
	if override.Scale != nil {
		out.Scale = override.Scale
	}
	if override.Compress != nil {
		out.Compress = override.Compress
	}
	return out
}

// ConversionJob is the server's acknowledgement of a submitted conversion.
type ConversionJob struct {
	ID     string
	Status string
}

// JobState is a point-in-time view of a conversion job.
type JobState struct {
	ID     string
	Status string
	Error  string
}

// PDFClient composes generation requests with defaulted options and submits
// them through the serial queue: generation is resource-heavy server-side
// and must not be parallelized client-side. Status polling is a cached
// read; result download is a plain read.
type PDFClient struct {
	client   *Client
	defaults GenerateOptions
}

// NewPDFClient wraps a Client with conversion endpoints.
func NewPDFClient(client *Client) *PDFClient {
	return &PDFClient{
		client:   client,
		defaults: DefaultGenerateOptions(),
	}
}

// ConvertHTML submits an HTML document for conversion and returns the
// server-issued job.
func (p *PDFClient) ConvertHTML(ctx context.Context, html string, opts *GenerateOptions) (*ConversionJob, error) {
	payload := map[string]interface{}{
		"html":    html,
		"options": mergeGenerateOptions(p.defaults, opts),
	}
	return p.submit(ctx, endpointConvertHTML, payload)
}

// ConvertURL submits a URL for conversion and returns the server-issued
// job.
func (p *PDFClient) ConvertURL(ctx context.Context, pageURL string, opts *GenerateOptions) (*ConversionJob, error) {
	payload := map[string]interface{}{
		"url":     pageURL,
		"options": mergeGenerateOptions(p.defaults, opts),
	}
	return p.submit(ctx, endpointConvertURL, payload)
}

func (p *PDFClient) submit(ctx context.Context, endpoint string, payload map[string]interface{}) (*ConversionJob, error) {
	ctx = WithContextQueued(ctx)
	headers := map[string]string{headerIdempotencyKey: uuid.NewString()}

	env, err := p.client.Request(ctx, http.MethodPost, endpoint, JSONBody(payload), headers)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, submissionError(env, endpoint)
	}

	obj, ok := env.Data.(map[string]interface{})
	if !ok {
		return nil, &ClientError{
			Type:       ErrorTypeDecode,
			Message:    "conversion response missing job object",
			URL:        endpoint,
			StatusCode: env.Status,
		}
	}
	job := &ConversionJob{
		ID:     stringField(obj, "jobId", "id"),
		Status: stringField(obj, "status"),
	}
	if job.ID == "" {
		return nil, &ClientError{
			Type:       ErrorTypeDecode,
			Message:    "conversion response missing job id",
			URL:        endpoint,
			StatusCode: env.Status,
		}
	}
	return job, nil
}

// JobStatus polls the state of a conversion job. Polls within the cache TTL
// are served from cache without a network attempt.
func (p *PDFClient) JobStatus(ctx context.Context, jobID string) (*JobState, error) {
	ctx = WithContextCacheEnabled(ctx)
	env, err := p.client.Get(ctx, fmt.Sprintf(endpointJobStatus, jobID))
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, submissionError(env, jobID)
	}

	state := &JobState{ID: jobID}
	if obj, ok := env.Data.(map[string]interface{}); ok {
		if id := stringField(obj, "jobId", "id"); id != "" {
			state.ID = id
		}
		state.Status = stringField(obj, "status")
		state.Error = stringField(obj, "error")
	}
	return state, nil
}

// DownloadResult fetches the finished document by job id. A not-found or
// failed job surfaces as an error carrying the user-facing message.
func (p *PDFClient) DownloadResult(ctx context.Context, jobID string) ([]byte, error) {
	return p.client.DownloadFile(ctx, fmt.Sprintf(endpointJobDownload, jobID))
}

// Profile fetches the current user's profile.
func (p *PDFClient) Profile(ctx context.Context) (map[string]interface{}, error) {
	env, err := p.client.Get(ctx, endpointProfile)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, submissionError(env, endpointProfile)
	}
	obj, _ := env.Data.(map[string]interface{})
	return obj, nil
}

// Logout terminates the server session. The credential state is left to the
// next response's refresh header.
func (p *PDFClient) Logout(ctx context.Context) error {
	env, err := p.client.Post(ctx, endpointLogout, NoBody())
	if err != nil {
		return err
	}
	if !env.Success {
		return submissionError(env, endpointLogout)
	}
	return nil
}

func submissionError(env *Envelope, url string) *ClientError {
	errType := ErrorTypeClient
	if env.Status >= 500 {
		errType = ErrorTypeServer
	}
	return &ClientError{
		Type:       errType,
		Message:    UserMessage(env, nil),
		URL:        url,
		StatusCode: env.Status,
	}
}

func stringField(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
