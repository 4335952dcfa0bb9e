package cloud

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// translateBatchSize is how many segments go to the translation
// endpoint per request. Small batches keep individual requests fast
// without flooding the service.
const translateBatchSize = 5

// HTTPClient is the real SaaS client. One struct implements all four
// services; the interface split exists so callers depend only on what
// they use.
type HTTPClient struct {
	baseURL    string
	token      string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Credit() CreditService          { return c }
func (c *HTTPClient) Transcriber() TranscribeService { return c }
func (c *HTTPClient) Translator() TranslateService   { return c }
func (c *HTTPClient) Renderer() RenderService        { return c }

func (c *HTTPClient) SetDeviceID(id string) {
	c.deviceID = id
}

func (c *HTTPClient) Credits(ctx context.Context) (Credits, error) {
	var out Credits
	if err := c.getJSON(ctx, "/api/credits", &out); err != nil {
		return Credits{}, err
	}
	return out, nil
}

func (c *HTTPClient) DeductCredit(ctx context.Context) (int, error) {
	var out struct {
		Success   bool `json:"success"`
		Remaining int  `json:"remaining"`
	}
	status, body, err := c.postJSON(ctx, "/api/credits/deduct", struct{}{})
	if err != nil {
		return 0, err
	}
	if status == http.StatusPaymentRequired {
		return 0, ErrInsufficientCredits
	}
	if status < 200 || status >= 300 {
		return 0, fmt.Errorf("credit deduction failed: HTTP %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode credit response: %w", err)
	}
	return out.Remaining, nil
}

func (c *HTTPClient) Transcribe(ctx context.Context, media []byte, filename, language string) (TranscribeResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return TranscribeResult{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(media); err != nil {
		return TranscribeResult{}, fmt.Errorf("build upload form: %w", err)
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return TranscribeResult{}, fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return TranscribeResult{}, fmt.Errorf("build upload form: %w", err)
	}

	url := c.baseURL + "/api/transcribe"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return TranscribeResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.setAuthHeaders(req)

	c.logger.Info("transcribing media",
		"url", url,
		"filename", filename,
		"language", language,
		"body_bytes", len(media),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TranscribeResult{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TranscribeResult{}, &TranscribeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result struct {
		Success  bool      `json:"success"`
		Segments []Segment `json:"segments"`
		RawText  string    `json:"raw_text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return TranscribeResult{}, fmt.Errorf("decode transcription: %w", err)
	}
	if !result.Success {
		return TranscribeResult{}, &TranscribeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	c.logger.Info("transcription succeeded", "segment_count", len(result.Segments))
	return TranscribeResult{Segments: result.Segments, RawText: result.RawText}, nil
}

// Translate sends segments in batches of translateBatchSize and
// reassembles the results in order. A failure in any batch fails the
// whole call; no partial result is returned.
func (c *HTTPClient) Translate(ctx context.Context, segments []Segment, targetLanguage string) ([]Segment, error) {
	out := make([]Segment, 0, len(segments))
	for start := 0; start < len(segments); start += translateBatchSize {
		end := start + translateBatchSize
		if end > len(segments) {
			end = len(segments)
		}

		batch, err := c.translateBatch(ctx, segments[start:end], targetLanguage)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}

	c.logger.Info("translation succeeded",
		"segment_count", len(out),
		"target_language", targetLanguage,
	)
	return out, nil
}

func (c *HTTPClient) translateBatch(ctx context.Context, segments []Segment, targetLanguage string) ([]Segment, error) {
	payload := struct {
		Segments       []Segment `json:"segments"`
		TargetLanguage string    `json:"target_language"`
	}{Segments: segments, TargetLanguage: targetLanguage}

	status, body, err := c.postJSON(ctx, "/api/translate", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &TranslateError{StatusCode: status, Body: string(body)}
	}

	var result struct {
		Success  bool      `json:"success"`
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode translation: %w", err)
	}
	if !result.Success {
		return nil, &TranslateError{StatusCode: status, Body: string(body)}
	}
	return result.Segments, nil
}

func (c *HTTPClient) Render(ctx context.Context, r RenderRequest) (RenderResult, error) {
	status, body, err := c.postJSON(ctx, "/api/render", r)
	if err != nil {
		return RenderResult{}, err
	}
	if status == http.StatusPaymentRequired {
		return RenderResult{}, ErrInsufficientCredits
	}
	if status < 200 || status >= 300 {
		return RenderResult{}, &RenderError{StatusCode: status, Body: string(body)}
	}

	var result struct {
		Success  bool   `json:"success"`
		VideoURL string `json:"video_url"`
		Error    string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return RenderResult{}, fmt.Errorf("decode render response: %w", err)
	}
	if !result.Success {
		return RenderResult{}, &RenderError{StatusCode: status, Body: result.Error}
	}

	c.logger.Info("render succeeded", "video_url", result.VideoURL)
	return RenderResult{VideoURL: result.VideoURL}, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed: HTTP %d: %s", path, resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, respBody, nil
}

func (c *HTTPClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-CapStudio-Request-Id", generateRequestID())
	if c.deviceID != "" {
		req.Header.Set("X-CapStudio-Device-Id", c.deviceID)
	}
}

func generateRequestID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
