package frequency

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the ExAC browser REST endpoint.
const DefaultBaseURL = "http://exac.hms.harvard.edu"

// HTTPSource queries an ExAC-compatible REST API.
//
//	GET  {base}/rest/variant/variant/{chrom-pos-ref-alt} -> {"allele_freq": 0.01, ...}
//	POST {base}/rest/bulk/variant  ["1-100-A-T", ...]   -> {"1-100-A-T": {"variant": {"allele_freq": 0.01}}}
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
}

// NewHTTPSource creates a source for the service at baseURL. Requests are
// limited to requestsPerSecond (<= 0 disables limiting) with the given burst.
func NewHTTPSource(baseURL string, timeout time.Duration, requestsPerSecond float64, burst int) *HTTPSource {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: "vibe-vcfanno",
	}
}

type variantResponse struct {
	AlleleFreq *float64 `json:"allele_freq"`
}

// Query fetches the allele frequency of a single variant.
func (s *HTTPSource) Query(ctx context.Context, k Key) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	reqURL := s.baseURL + "/rest/variant/variant/" + url.PathEscape(k.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", k, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	var body variantResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.AlleleFreq == nil {
		return 0, ErrNotFound
	}
	if err := CheckFrequency(*body.AlleleFreq); err != nil {
		return 0, err
	}
	return *body.AlleleFreq, nil
}

type bulkEntry struct {
	Variant *variantResponse `json:"variant"`
}

// QueryBatch fetches frequencies for many variants with one bulk request.
// A key answered with an out-of-range frequency comes back as Failed.
func (s *HTTPSource) QueryBatch(ctx context.Context, keys []Key) (map[Key]Result, error) {
	if len(keys) == 0 {
		return map[Key]Result{}, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k.String()
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode bulk request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rest/bulk/variant", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk query of %d variants: %w", len(keys), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	var body map[string]bulkEntry
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	out := make(map[Key]Result, len(keys))
	for i, k := range keys {
		entry, ok := body[ids[i]]
		if !ok || entry.Variant == nil || entry.Variant.AlleleFreq == nil {
			continue
		}
		af := *entry.Variant.AlleleFreq
		if CheckFrequency(af) != nil {
			// One bad value must not fail the rest of the batch.
			out[k] = Failed()
			continue
		}
		out[k] = Found(af)
	}
	return out, nil
}
