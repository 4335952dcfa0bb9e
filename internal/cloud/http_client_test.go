package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPClient_Transcribe_Success(t *testing.T) {
	var receivedAuth string
	var receivedFilename string
	var receivedLanguage string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/transcribe" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		receivedLanguage = r.FormValue("language")
		if fhs := r.MultipartForm.File["file"]; len(fhs) == 1 {
			receivedFilename = fhs[0].Filename
		}

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"segments": []Segment{
				{Start: 0, End: 5, Text: "Hello world"},
				{Start: 5, End: 12, Text: "This is a test"},
			},
			"raw_text": "Hello world This is a test",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	result, err := client.Transcribe(context.Background(), []byte("fake video bytes"), "clip.mp4", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer test-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer test-token")
	}
	if receivedFilename != "clip.mp4" {
		t.Errorf("filename = %q, want clip.mp4", receivedFilename)
	}
	if receivedLanguage != "en" {
		t.Errorf("language = %q, want en", receivedLanguage)
	}
	if len(result.Segments) != 2 || result.Segments[1].Text != "This is a test" {
		t.Errorf("segments = %+v", result.Segments)
	}
}

func TestHTTPClient_Transcribe_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "whisper unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	_, err := client.Transcribe(context.Background(), []byte("x"), "clip.mp4", "")
	if err == nil {
		t.Fatal("expected error")
	}

	var terr *TranscribeError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *TranscribeError", err)
	}
	if !terr.IsRetryable() {
		t.Error("5xx transcription error should be retryable")
	}
	if !strings.Contains(terr.Body, "whisper unavailable") {
		t.Errorf("body = %q", terr.Body)
	}
}

func TestHTTPClient_Translate_Batches(t *testing.T) {
	var batchSizes []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/translate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload struct {
			Segments       []Segment `json:"segments"`
			TargetLanguage string    `json:"target_language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		batchSizes = append(batchSizes, len(payload.Segments))

		out := make([]Segment, len(payload.Segments))
		for i, s := range payload.Segments {
			out[i] = Segment{Start: s.Start, End: s.End, Text: "T:" + s.Text, Original: s.Text}
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "segments": out})
	}))
	defer server.Close()

	segments := make([]Segment, 12)
	for i := range segments {
		segments[i] = Segment{Start: float64(i), End: float64(i + 1), Text: fmt.Sprintf("seg %d", i)}
	}

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	out, err := client.Translate(context.Background(), segments, "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []int{5, 5, 2}; len(batchSizes) != 3 || batchSizes[0] != want[0] || batchSizes[1] != want[1] || batchSizes[2] != want[2] {
		t.Errorf("batch sizes = %v, want %v", batchSizes, want)
	}
	if len(out) != 12 {
		t.Fatalf("segment count = %d, want 12", len(out))
	}
	// Order survives batching.
	if out[0].Text != "T:seg 0" || out[11].Text != "T:seg 11" || out[11].Original != "seg 11" {
		t.Errorf("segments out of order: first=%+v last=%+v", out[0], out[11])
	}
}

func TestHTTPClient_Translate_FailedBatchDropsAll(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "translation model overloaded", http.StatusBadGateway)
			return
		}
		var payload struct {
			Segments []Segment `json:"segments"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "segments": payload.Segments})
	}))
	defer server.Close()

	segments := make([]Segment, 8)
	client := NewHTTPClient(server.URL, "test-token", testLogger())
	out, err := client.Translate(context.Background(), segments, "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if out != nil {
		t.Errorf("partial result returned: %v", out)
	}

	var terr *TranslateError
	if !errors.As(err, &terr) {
		t.Fatalf("error type = %T, want *TranslateError", err)
	}
}

func TestHTTPClient_Render_InsufficientCredits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no credits"}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	_, err := client.Render(context.Background(), RenderRequest{Quality: "1080p"})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("error = %v, want ErrInsufficientCredits", err)
	}
}

func TestHTTPClient_Render_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/render" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "video_url": "https://cdn.example/out.mp4"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	result, err := client.Render(context.Background(), RenderRequest{Quality: "720p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.VideoURL != "https://cdn.example/out.mp4" {
		t.Errorf("video_url = %q", result.VideoURL)
	}
}

func TestHTTPClient_Credits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/credits" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Credits{Plan: "pro", Total: 100, Used: 40, Remaining: 60, ResetDate: "2026-09-01"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	credits, err := client.Credits(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if credits.Plan != "pro" || credits.Remaining != 60 {
		t.Errorf("credits = %+v", credits)
	}
}

func TestHTTPClient_DeductCredit_PaymentRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient_credits"}`, http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "test-token", testLogger())
	if _, err := client.DeductCredit(context.Background()); !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("error = %v, want ErrInsufficientCredits", err)
	}
}

func TestStubClient_CreditsRunOut(t *testing.T) {
	stub := NewStubClient(testLogger())

	for i := 0; i < 3; i++ {
		if _, err := stub.DeductCredit(context.Background()); err != nil {
			t.Fatalf("deduct %d: %v", i+1, err)
		}
	}
	if _, err := stub.DeductCredit(context.Background()); !errors.Is(err, ErrInsufficientCredits) {
		t.Errorf("error = %v, want ErrInsufficientCredits", err)
	}

	credits, err := stub.Credits(context.Background())
	if err != nil {
		t.Fatalf("Credits() error = %v", err)
	}
	if credits.Remaining != 0 || credits.Used != 3 {
		t.Errorf("credits = %+v, want 0 remaining, 3 used", credits)
	}
}
