package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// StubClient satisfies Client without any network. It backs the agent
// when cloud sync is disabled, and the tests.
type StubClient struct {
	mu        sync.Mutex
	remaining int
	logger    *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{remaining: 3, logger: logger}
}

func (c *StubClient) Credit() CreditService          { return c }
func (c *StubClient) Transcriber() TranscribeService { return c }
func (c *StubClient) Translator() TranslateService   { return c }
func (c *StubClient) Renderer() RenderService        { return c }

func (c *StubClient) Credits(ctx context.Context) (Credits, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Credits{
		Plan:      "free",
		Total:     3,
		Used:      3 - c.remaining,
		Remaining: c.remaining,
		ResetDate: "2099-01-01",
	}, nil
}

func (c *StubClient) DeductCredit(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return 0, ErrInsufficientCredits
	}
	c.remaining--
	c.logger.Info("cloud stub: credit deducted", "remaining", c.remaining)
	return c.remaining, nil
}

func (c *StubClient) Transcribe(ctx context.Context, media []byte, filename, language string) (TranscribeResult, error) {
	c.logger.Info("cloud stub: transcription requested", "filename", filename, "body_bytes", len(media))
	segments := []Segment{
		{Start: 0, End: 2.5, Text: "Welcome to your video"},
		{Start: 2.5, End: 5, Text: "Captions will appear here"},
		{Start: 5, End: 8, Text: "Edit them on the timeline below"},
	}
	raw := ""
	for i, s := range segments {
		if i > 0 {
			raw += " "
		}
		raw += s.Text
	}
	return TranscribeResult{Segments: segments, RawText: raw}, nil
}

func (c *StubClient) Translate(ctx context.Context, segments []Segment, targetLanguage string) ([]Segment, error) {
	c.logger.Info("cloud stub: translation requested",
		"segment_count", len(segments),
		"target_language", targetLanguage,
	)
	out := make([]Segment, len(segments))
	for i, s := range segments {
		out[i] = Segment{
			Start:    s.Start,
			End:      s.End,
			Text:     fmt.Sprintf("[%s] %s", targetLanguage, s.Text),
			Original: s.Text,
		}
	}
	return out, nil
}

func (c *StubClient) Render(ctx context.Context, r RenderRequest) (RenderResult, error) {
	c.logger.Info("cloud stub: render requested",
		"caption_count", len(r.Captions),
		"quality", r.Quality,
	)
	return RenderResult{VideoURL: "stub://rendered/" + r.Quality}, nil
}
