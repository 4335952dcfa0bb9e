// Package cloud talks to the Caption Studio SaaS: credits, AI
// transcription, translation and rendered video export. The agent
// treats all four as opaque collaborators behind the Client interface;
// a stub implementation keeps the editor fully usable offline.
package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// ErrInsufficientCredits is returned when the account has no render
// credits left. Callers surface it as an upgrade prompt, not a failure.
var ErrInsufficientCredits = errors.New("cloud: insufficient credits")

// Credits describes the account's render credit balance.
type Credits struct {
	Plan      string `json:"plan"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	ResetDate string `json:"reset_date"`
}

// Segment is one timed piece of transcribed or translated speech.
type Segment struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Original string  `json:"original,omitempty"`
}

// TranscribeResult is the transcription service's response.
type TranscribeResult struct {
	Segments []Segment `json:"segments"`
	RawText  string    `json:"raw_text"`
}

// RenderRequest carries everything the render service needs to burn
// captions into a video.
type RenderRequest struct {
	VideoURL string           `json:"video_url"`
	Captions []caption.Entity `json:"captions"`
	Style    caption.Style    `json:"style"`
	Quality  string           `json:"quality"`
}

// RenderResult points at the finished video.
type RenderResult struct {
	VideoURL string `json:"video_url"`
}

// CreditService reads and spends the account's credit balance.
type CreditService interface {
	Credits(ctx context.Context) (Credits, error)
	DeductCredit(ctx context.Context) (remaining int, err error)
}

// TranscribeService turns uploaded media into timed segments.
type TranscribeService interface {
	Transcribe(ctx context.Context, media []byte, filename, language string) (TranscribeResult, error)
}

// TranslateService rewrites segment text into the target language,
// preserving timing.
type TranslateService interface {
	Translate(ctx context.Context, segments []Segment, targetLanguage string) ([]Segment, error)
}

// RenderService produces the final captioned video.
type RenderService interface {
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// Client bundles every cloud collaborator the agent uses.
type Client interface {
	Credit() CreditService
	Transcriber() TranscribeService
	Translator() TranslateService
	Renderer() RenderService
}

// TranscribeError is a failure from the transcription endpoint.
type TranscribeError struct {
	StatusCode int
	Body       string
}

func (e *TranscribeError) Error() string {
	return fmt.Sprintf("transcription failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors
// (4xx) are considered permanent.
func (e *TranscribeError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// TranslateError is a failure from the translation endpoint.
type TranslateError struct {
	StatusCode int
	Body       string
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translation failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TranslateError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// RenderError is a failure from the render endpoint.
type RenderError struct {
	StatusCode int
	Body       string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *RenderError) IsRetryable() bool {
	return e.StatusCode >= 500
}
