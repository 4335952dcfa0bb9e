package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/captionstudio/captionstudio-agent/internal/cloud"
	"github.com/captionstudio/captionstudio-agent/internal/config"
	"github.com/captionstudio/captionstudio-agent/internal/db"
	"github.com/captionstudio/captionstudio-agent/internal/media"
	"github.com/captionstudio/captionstudio-agent/internal/project"
)

const testToken = "test-token"

type testConfig struct{}

func (testConfig) Port() int                        { return 0 }
func (testConfig) LogLevel() string                 { return "error" }
func (testConfig) DataDir() string                  { return "" }
func (testConfig) DBPath() string                   { return "" }
func (testConfig) UploadDir() string                { return "" }
func (testConfig) MaxUploadBytes() int64            { return 1 << 20 }
func (testConfig) WaveformSamples() int             { return 50 }
func (testConfig) CloudEnabled() bool               { return false }
func (testConfig) CloudBaseURL() string             { return "" }
func (testConfig) CloudToken() string               { return "" }
func (testConfig) TimeoutTranscribe() time.Duration { return time.Second }
func (testConfig) TimeoutTranslate() time.Duration  { return time.Second }
func (testConfig) TimeoutRender() time.Duration     { return time.Second }

var _ config.Config = testConfig{}

type testEnv struct {
	router  *chi.Mux
	session *project.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(filepath.Join(t.TempDir(), "studio.db"), logger)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := project.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("seed auth token: %v", err)
	}

	session := project.NewSession(repo, cloud.NewStubClient(logger), testConfig{}, logger)
	router := NewRouter(ServerConfig{
		Port:        0,
		Session:     session,
		Repository:  repo,
		MediaServer: media.NewServer(logger),
		Logger:      logger,
		StartTime:   time.Now(),
		DeviceID:    "dev-test",
	})
	return &testEnv{router: router, session: session}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func (e *testEnv) openProject(t *testing.T) ProjectResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/project/new", NewProjectRequest{
		Name: "Demo", VideoPath: "/videos/demo.mp4", Duration: 30,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("project/new = %d: %s", rr.Code, rr.Body.String())
	}
	var p ProjectResponse
	decode(t, rr, &p)
	return p
}

func TestHealth_NoAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("health = %d", rr.Code)
	}
	var resp HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" || resp.DeviceID != "dev-test" {
		t.Errorf("unexpected health response: %+v", resp)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAuth_Rejections(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing header = %d, want 401", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", rr.Code)
	}

	var resp ErrorResponse
	decode(t, rr, &resp)
	if resp.Code != "UNAUTHORIZED" {
		t.Errorf("unexpected error code %q", resp.Code)
	}
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/project", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("project before create = %d, want 404", rr.Code)
	}

	created := env.openProject(t)
	if created.Name != "Demo" || created.Duration != 30 {
		t.Errorf("unexpected created project: %+v", created)
	}

	rr = env.do(t, http.MethodGet, "/project", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("project = %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/project/rename", RenameProjectRequest{Name: "Renamed"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("rename = %d", rr.Code)
	}

	rr = env.do(t, http.MethodGet, "/projects", nil)
	var list ProjectsResponse
	decode(t, rr, &list)
	if len(list.Projects) != 1 || list.Projects[0].Name != "Renamed" {
		t.Errorf("unexpected project list: %+v", list)
	}
}

func TestCaptionCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/captions", AddCaptionRequest{Text: "Hello world"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add caption = %d: %s", rr.Code, rr.Body.String())
	}
	var created map[string]interface{}
	decode(t, rr, &created)
	id := created["id"].(string)

	newText := "Edited"
	rr = env.do(t, http.MethodPatch, "/captions/"+id, UpdateCaptionRequest{Text: &newText})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch = %d: %s", rr.Code, rr.Body.String())
	}

	var captions CaptionsResponse
	rr = env.do(t, http.MethodGet, "/captions", nil)
	decode(t, rr, &captions)
	if len(captions.Captions) != 1 || captions.Captions[0].Text != "Edited" {
		t.Errorf("unexpected captions: %+v", captions.Captions)
	}

	rr = env.do(t, http.MethodDelete, "/captions/"+id, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}

	rr = env.do(t, http.MethodDelete, "/captions/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d, want 404", rr.Code)
	}
}

func TestSplitAndMerge(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/captions", AddCaptionRequest{Text: "Hello world"})
	var created map[string]interface{}
	decode(t, rr, &created)
	id := created["id"].(string)

	rr = env.do(t, http.MethodPost, "/captions/"+id+"/split", SplitCaptionRequest{AtTextOffset: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("split = %d: %s", rr.Code, rr.Body.String())
	}
	var split SplitCaptionResponse
	decode(t, rr, &split)
	if split.First.Text != "Hello" || split.Second.Text != "world" {
		t.Errorf("unexpected split: %+v", split)
	}

	rr = env.do(t, http.MethodPost, "/captions/"+split.First.ID+"/merge", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("merge = %d: %s", rr.Code, rr.Body.String())
	}

	// Splitting at offset 0 leaves an empty half and is rejected.
	rr = env.do(t, http.MethodPost, "/captions/"+split.First.ID+"/split", SplitCaptionRequest{AtTextOffset: 0})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty-half split = %d, want 400", rr.Code)
	}
}

func TestTimelineGestureOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/captions", AddCaptionRequest{Text: "drag me"})
	var created map[string]interface{}
	decode(t, rr, &created)
	id := created["id"].(string)

	rr = env.do(t, http.MethodPost, "/timeline/gesture/start", GestureStartRequest{
		CaptionID: id, Kind: "move", X: 0, Width: 600,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("gesture start = %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, "/timeline/gesture/move", GestureMoveRequest{X: 100})
	if rr.Code != http.StatusOK {
		t.Fatalf("gesture move = %d: %s", rr.Code, rr.Body.String())
	}
	var state GestureStateResponse
	decode(t, rr, &state)
	if !state.Dragging {
		t.Error("expected dragging state during gesture")
	}

	rr = env.do(t, http.MethodPost, "/timeline/gesture/end", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("gesture end = %d: %s", rr.Code, rr.Body.String())
	}

	// The finished gesture is one undo step.
	rr = env.do(t, http.MethodPost, "/undo", nil)
	var undo HistoryResponse
	decode(t, rr, &undo)
	if !undo.Applied || !undo.CanRedo {
		t.Errorf("unexpected undo response: %+v", undo)
	}

	e, err := env.session.Store().Get(id)
	if err != nil {
		t.Fatalf("caption vanished: %v", err)
	}
	if e.StartTime != 0 {
		t.Errorf("undo did not restore the pre-drag position: %+v", e)
	}
}

func TestTimelineGesture_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/timeline/gesture/move", GestureMoveRequest{X: 10})
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("gesture move without active drag = %d, want 500", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/timeline/gesture/start", GestureStartRequest{
		CaptionID: "nope", Kind: "move", X: 0, Width: 600,
	})
	if rr.Code != http.StatusNotFound {
		t.Errorf("gesture start for missing caption = %d, want 404", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/timeline/gesture/start", GestureStartRequest{
		CaptionID: "x", Kind: "sideways", X: 0, Width: 600,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown kind = %d, want 400", rr.Code)
	}
}

func TestSeekAndView(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/timeline/seek", SeekRequest{X: 300, Width: 600})
	var seek SeekResponse
	decode(t, rr, &seek)
	if seek.Playhead != 15 {
		t.Errorf("expected playhead 15, got %v", seek.Playhead)
	}

	zoom := 4.0
	delta := -40.0
	rr = env.do(t, http.MethodPost, "/timeline/view", ViewRequest{Zoom: &zoom, ScrollDelta: &delta})
	var view ViewResponse
	decode(t, rr, &view)
	if view.Zoom != 4 {
		t.Errorf("expected zoom 4, got %v", view.Zoom)
	}
}

func TestPlaybackStateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/playback/state", PlaybackStateRequest{Playing: true})
	var state PlaybackStateResponse
	decode(t, rr, &state)
	if !state.Playing {
		t.Error("expected playing after start")
	}

	rr = env.do(t, http.MethodGet, "/status", nil)
	var status StatusResponse
	decode(t, rr, &status)
	if !status.Playing {
		t.Error("expected status to report playing")
	}

	rr = env.do(t, http.MethodPost, "/playback/state", PlaybackStateRequest{Playing: false})
	decode(t, rr, &state)
	if state.Playing {
		t.Error("expected stopped after pause")
	}
}

func TestOverlayAnchorDrag(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/overlay/anchor-drag", OverlayGestureRequest{Phase: "start", Y: 100, Height: 400})
	if rr.Code != http.StatusOK {
		t.Fatalf("anchor drag start = %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPost, "/overlay/anchor-drag", OverlayGestureRequest{Phase: "move", Y: 380})
	if rr.Code != http.StatusOK {
		t.Fatalf("anchor drag move = %d: %s", rr.Code, rr.Body.String())
	}
	var style StyleResponse
	decode(t, rr, &style)
	if style.Style.PositionY != 95 {
		t.Errorf("expected PositionY clamped to 95, got %v", style.Style.PositionY)
	}
	rr = env.do(t, http.MethodPost, "/overlay/anchor-drag", OverlayGestureRequest{Phase: "end"})
	if rr.Code != http.StatusOK {
		t.Fatalf("anchor drag end = %d", rr.Code)
	}
}

func TestWordStyleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodPost, "/captions", AddCaptionRequest{Text: "two words"})
	var created map[string]interface{}
	decode(t, rr, &created)
	id := created["id"].(string)

	color := "#ff0000"
	rr = env.do(t, http.MethodPost, "/overlay/word-style", WordStyleRequest{
		CaptionID: id, WordIndex: 1, Color: &color,
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("word-style = %d: %s", rr.Code, rr.Body.String())
	}

	e, _ := env.session.Store().Get(id)
	ws, ok := e.WordStyleAt(1)
	if !ok || ws.Color != "#ff0000" {
		t.Errorf("word style not applied: %+v", e.WordStyles)
	}
}

func TestGenerateEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	mediaPath := filepath.Join(t.TempDir(), "demo.mp4")
	if err := os.WriteFile(mediaPath, []byte("fake video"), 0644); err != nil {
		t.Fatalf("write media: %v", err)
	}

	rr := env.do(t, http.MethodPost, "/project/generate", GenerateRequest{MediaPath: mediaPath})
	if rr.Code != http.StatusOK {
		t.Fatalf("generate = %d: %s", rr.Code, rr.Body.String())
	}
	var resp GenerateResponse
	decode(t, rr, &resp)
	if len(resp.Captions) != 3 {
		t.Errorf("expected 3 stub captions, got %d", len(resp.Captions))
	}

	rr = env.do(t, http.MethodPost, "/project/generate", GenerateRequest{MediaPath: filepath.Join(t.TempDir(), "missing.mp4")})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("generate with missing file = %d, want 400", rr.Code)
	}
}

func TestExportEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)
	env.do(t, http.MethodPost, "/captions", AddCaptionRequest{Text: "Hi"})

	rr := env.do(t, http.MethodGet, "/export/srt", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export srt = %d: %s", rr.Code, rr.Body.String())
	}
	var file ExportFileResponse
	decode(t, rr, &file)
	if file.Filename != "Demo.srt" {
		t.Errorf("unexpected filename %q", file.Filename)
	}
	if file.Content != "1\n00:00:00,000 --> 00:00:02,000\nHi\n" {
		t.Errorf("unexpected srt content %q", file.Content)
	}

	rr = env.do(t, http.MethodGet, "/export/pdf", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown format = %d, want 400", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/export/video", RenderExportRequest{Quality: "high"})
	if rr.Code != http.StatusOK {
		t.Fatalf("export video = %d: %s", rr.Code, rr.Body.String())
	}
	var job ExportJobResponse
	decode(t, rr, &job)
	if job.Status != "completed" || job.VideoURL != "stub://rendered/high" {
		t.Errorf("unexpected job: %+v", job)
	}

	rr = env.do(t, http.MethodGet, "/export/jobs", nil)
	var jobs ExportJobsResponse
	decode(t, rr, &jobs)
	if len(jobs.Jobs) != 1 {
		t.Errorf("expected 1 export job, got %d", len(jobs.Jobs))
	}
}

func TestCreditsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/credits", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("credits = %d: %s", rr.Code, rr.Body.String())
	}
	var credits CreditsResponse
	decode(t, rr, &credits)
	if credits.Plan != "free" || credits.Remaining != 3 {
		t.Errorf("unexpected credits: %+v", credits)
	}
}

func TestTemplatesEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)

	rr := env.do(t, http.MethodGet, "/templates", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("templates = %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/style/template/karaoke_punch", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("apply template = %d: %s", rr.Code, rr.Body.String())
	}
	var style StyleResponse
	decode(t, rr, &style)
	if style.Style.HighlightColor != "#3b82f6" {
		t.Errorf("template not applied: %+v", style.Style)
	}

	rr = env.do(t, http.MethodPost, "/style/template/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown template = %d, want 404", rr.Code)
	}
}

func TestOverlayFrameEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.openProject(t)
	env.do(t, http.MethodPost, "/captions", AddCaptionRequest{Text: "hello there"})

	rr := env.do(t, http.MethodGet, "/overlay/frame?t=1.0", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("overlay frame = %d: %s", rr.Code, rr.Body.String())
	}
	var frame map[string]interface{}
	decode(t, rr, &frame)
	blocks, ok := frame["blocks"].([]interface{})
	if !ok || len(blocks) != 1 {
		t.Errorf("expected one visible block at t=1.0, got %v", frame["blocks"])
	}

	rr = env.do(t, http.MethodGet, "/overlay/frame?t=oops", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad t = %d, want 400", rr.Code)
	}
}

func TestPlaybackEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/playback/video", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("playback without project = %d, want 404", rr.Code)
	}

	videoPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("0123456789abcdef"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	rr = env.do(t, http.MethodPost, "/project/new", NewProjectRequest{
		Name: "Clip", VideoPath: videoPath, Duration: 10,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("project/new = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/playback/video", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Range", "bytes=4-7")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("range request = %d, want 206", rec.Code)
	}
	if rec.Body.String() != "4567" {
		t.Errorf("unexpected range body %q", rec.Body.String())
	}
}
