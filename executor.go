package pdfrelay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// executor performs a single request attempt: it builds the transport call,
// applies the attempt's cancellation boundary, encodes the body, decodes the
// response and produces the uniform envelope. Credential observation runs
// after every received response.
type executor struct {
	transport   *http.Client
	credentials *CredentialProvider
}

func newExecutor(transport *http.Client, credentials *CredentialProvider) *executor {
	return &executor{
		transport:   transport,
		credentials: credentials,
	}
}

// execute runs one attempt. The timeout is scoped to this attempt only; a
// retry gets a fresh cancellation scope and fresh timer. Transport failures
// (no response) return an error; any received response, 2xx or not, returns
// a populated envelope.
func (x *executor) execute(ctx context.Context, method, url string, body Body, headers http.Header, timeout time.Duration) (*Envelope, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reader, contentType, total, err := encodeBody(body)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeClient,
			Message: "failed to encode request body",
			Cause:   err,
			Method:  method,
			URL:     url,
		}
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return nil, &ClientError{
			Type:    ErrorTypeClient,
			Message: "failed to build request",
			Cause:   err,
			Method:  method,
			URL:     url,
		}
	}

	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if contentType != "" {
		// The encoder owns the content type: multipart needs the boundary
		// the writer generated, JSON is always application/json.
		req.Header.Set("Content-Type", contentType)
	}
	if total > 0 {
		req.ContentLength = total
	}

	resp, err := x.transport.Do(req)
	if err != nil {
		return nil, transportError(err, method, url)
	}
	defer func() { _ = resp.Body.Close() }()

	// Token refresh happens on every received response, success or failure.
	x.credentials.Observe(resp.Header)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err, method, url)
	}

	data, err := decodeBody(raw, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &ClientError{
			Type:       ErrorTypeDecode,
			Message:    "failed to decode response body",
			Cause:      err,
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
		}
	}

	return &Envelope{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		Data:       data,
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    resp.Header.Clone(),
	}, nil
}

// transportError classifies a no-response failure. Timeouts and
// cancellations get the timeout sentinel; everything else is the opaque
// status-0 network failure (offline, CORS-blocked and DNS errors are
// indistinguishable here and share one classification).
func transportError(err error, method, url string) *ClientError {
	message := "network request failed"
	cause := err
	if errors.Is(err, context.DeadlineExceeded) {
		message = "request timed out"
		cause = fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return &ClientError{
		Type:       ErrorTypeTransport,
		Message:    message,
		Cause:      cause,
		Method:     method,
		URL:        url,
		StatusCode: 0,
	}
}

// encodeBody turns the tagged body union into a reader plus content type.
// Payloads are re-encoded from values on every call so retries never reuse
// a drained reader.
func encodeBody(body Body) (io.Reader, string, int64, error) {
	switch body.Kind {
	case BodyNone:
		return nil, "", 0, nil

	case BodyJSON:
		encoded, err := json.Marshal(body.JSON)
		if err != nil {
			return nil, "", 0, err
		}
		return bytes.NewReader(encoded), "application/json", int64(len(encoded)), nil

	case BodyMultipart:
		return encodeMultipart(body)

	case BodyRaw:
		return bytes.NewReader(body.Raw), body.ContentType, int64(len(body.Raw)), nil

	default:
		return nil, "", 0, fmt.Errorf("unknown body kind %d", body.Kind)
	}
}

func encodeMultipart(body Body) (io.Reader, string, int64, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if body.File != nil {
		fieldName := body.File.FieldName
		if fieldName == "" {
			fieldName = "file"
		}
		part, err := w.CreateFormFile(fieldName, body.File.FileName)
		if err != nil {
			return nil, "", 0, err
		}
		if _, err := part.Write(body.File.Content); err != nil {
			return nil, "", 0, err
		}
	}
	for name, value := range body.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", 0, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", 0, err
	}

	total := int64(buf.Len())
	var reader io.Reader = &buf
	if body.File != nil && body.File.Progress != nil {
		reader = &progressReader{r: reader, total: total, fn: body.File.Progress}
	}
	return reader, w.FormDataContentType(), total, nil
}

// progressReader reports bytes sent through the opaque progress callback.
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

// decodeBody interprets the raw body per the response's declared content
// type: JSON becomes a parsed structure, text becomes a string, anything
// else stays a raw byte slice.
func decodeBody(raw []byte, contentType string) (interface{}, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch {
	case strings.Contains(mediaType, "json"):
		if len(raw) == 0 {
			return nil, nil
		}
		var data interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, err
		}
		return data, nil

	case strings.HasPrefix(mediaType, "text/"):
		return string(raw), nil

	default:
		return raw, nil
	}
}
