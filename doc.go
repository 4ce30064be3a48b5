// Package pdfrelay is a governed API client for an HTML→PDF conversion
// service. It turns ad-hoc endpoint calls into an orchestrated pipeline:
//
//   - Credential injection (CSRF token + API key headers, with opportunistic
//     token refresh from response headers)
//   - TTL-based response caching for opted-in idempotent reads
//   - Retries with strict exponential backoff (delay doubles each retry)
//   - An optional serial queue funnelling conversion submissions through a
//     single-flight FIFO lane with a minimum inter-request gap
//   - De-duplication of identical in-flight reads
//   - Circuit breaker (open / half-open / closed states)
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - Uniform response envelope regardless of transport outcome
//   - Multiple independent Client instances never share state
//   - Extensibility via pluggable cache / logger / metrics
//
// Typical usage:
//
//	client := pdfrelay.New(
//	    pdfrelay.WithBaseURL("https://pdf.example.com"),
//	    pdfrelay.WithMaxRetries(3),
//	    pdfrelay.WithCacheTTL(time.Minute),
//	    pdfrelay.WithAPIKeyFunc(session.APIKey),
//	)
//	defer client.Close()
//
//	pdf := pdfrelay.NewPDFClient(client)
//	job, err := pdf.ConvertHTML(ctx, "<h1>Hello</h1>", nil)
//
// Conversion submissions are resource-heavy server-side and are serialized
// client-side through the queue; status polls are cached reads. Non-2xx
// responses are returned as populated envelopes with Success=false, not as
// errors; only transport, decode and configuration failures surface as
// errors. Use UserMessage to translate either into display text.
package pdfrelay
