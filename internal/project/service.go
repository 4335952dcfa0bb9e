package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
	"github.com/captionstudio/captionstudio-agent/internal/cloud"
	"github.com/captionstudio/captionstudio-agent/internal/config"
	"github.com/captionstudio/captionstudio-agent/internal/export"
	"github.com/captionstudio/captionstudio-agent/internal/history"
	"github.com/captionstudio/captionstudio-agent/internal/media"
	"github.com/captionstudio/captionstudio-agent/internal/overlay"
	"github.com/captionstudio/captionstudio-agent/internal/template"
	"github.com/captionstudio/captionstudio-agent/internal/timeline"
)

var (
	ErrNoProject          = errors.New("project: no project loaded")
	ErrGenerationInFlight = errors.New("project: caption generation already in progress")
	ErrExportInFlight     = errors.New("project: export already in progress")
	ErrUploadTooLarge     = errors.New("project: media file exceeds upload limit")
)

// defaultElementDuration is how long a freshly inserted text overlay stays on
// screen when the user does not pick a range.
const defaultElementDuration = 3.0

// Session is the live editing state for the open project. It owns the entity
// store, the global style, the gesture controllers and the undo history, and
// funnels every committed edit through one place so that history snapshots
// and the persisted document never diverge.
type Session struct {
	repo   Repository
	cloud  cloud.Client
	cfg    config.Config
	logger *slog.Logger

	store     *caption.Store
	hist      *history.History
	timeline  *timeline.Controller
	editor    *overlay.Editor
	extractor *media.WaveformExtractor

	mu          sync.Mutex
	style       caption.Style
	waveform    []float64
	projectID   string
	projectName string
	videoPath   string
	playing     bool
	generating  bool
	exporting   bool
}

func NewSession(repo Repository, client cloud.Client, cfg config.Config, logger *slog.Logger) *Session {
	store := caption.NewStore(0)
	s := &Session{
		repo:      repo,
		cloud:     client,
		cfg:       cfg,
		logger:    logger,
		store:     store,
		hist:      history.New(),
		extractor: media.NewWaveformExtractor(cfg.WaveformSamples(), logger),
		style:     caption.DefaultStyle(),
		waveform:  media.Placeholder(cfg.WaveformSamples()),
	}
	s.timeline = timeline.NewController(store, logger)
	s.editor = overlay.NewEditor(store, s, logger)

	// Gestures run against the store directly; history and persistence only
	// see the state at gesture end, one snapshot per gesture.
	s.timeline.OnGestureEnd(s.commit)
	s.editor.OnGestureEnd(s.commit)
	return s
}

// Style implements overlay.StyleAccess. It hands out a copy; all writes flow
// back through SetStyle.
func (s *Session) Style() caption.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// SetStyle implements overlay.StyleAccess. It does not record history; gesture
// hooks and UpdateStyle take care of that.
func (s *Session) SetStyle(st caption.Style) {
	s.mu.Lock()
	s.style = st
	s.mu.Unlock()
}

func (s *Session) Store() *caption.Store          { return s.store }
func (s *Session) Timeline() *timeline.Controller { return s.timeline }
func (s *Session) Editor() *overlay.Editor        { return s.editor }

func (s *Session) ProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

func (s *Session) ProjectName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectName
}

func (s *Session) VideoPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videoPath
}

func (s *Session) Waveform() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.waveform))
	copy(out, s.waveform)
	return out
}

// Playing reports whether playback is running. The flag is session state
// only; it is not persisted with the document.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Session) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
}

func (s *Session) CanUndo() bool { return s.hist.CanUndo() }
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// NewProject creates and opens a fresh project. The session state is reset:
// empty store, default style, placeholder waveform, history seeded with the
// empty document.
func (s *Session) NewProject(ctx context.Context, name, videoPath, fileID string, duration float64) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{
		ID:        caption.NewID(),
		Name:      name,
		VideoPath: videoPath,
		FileID:    fileID,
		Duration:  duration,
		Document: Document{
			Captions: []caption.Entity{},
			Style:    caption.DefaultStyle(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.open(p)
	s.logger.Info("project created", "project_id", p.ID, "name", p.Name, "duration", duration)
	return p, nil
}

// LoadProject opens a stored project and restores its document into the
// session.
func (s *Session) LoadProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if p == nil {
		return nil, ErrNoProject
	}
	s.open(p)
	s.logger.Info("project loaded", "project_id", p.ID, "name", p.Name)
	return p, nil
}

// LoadLatest opens the most recently touched project, or returns ErrNoProject
// when the store is empty.
func (s *Session) LoadLatest(ctx context.Context) (*Project, error) {
	p, err := s.repo.GetLatestProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("load latest project: %w", err)
	}
	if p == nil {
		return nil, ErrNoProject
	}
	s.open(p)
	s.logger.Info("project loaded", "project_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Session) open(p *Project) {
	style := p.Document.Style
	if style == (caption.Style{}) {
		style = caption.DefaultStyle()
	}
	wave := p.Document.Waveform
	if len(wave) == 0 {
		wave = media.Placeholder(s.cfg.WaveformSamples())
	}

	s.mu.Lock()
	s.projectID = p.ID
	s.projectName = p.Name
	s.videoPath = p.VideoPath
	s.style = style
	s.waveform = wave
	s.playing = false
	s.mu.Unlock()

	s.store.SetDuration(p.Duration)
	s.store.ReplaceAll(p.Document.Captions)
	s.timeline.SetWaveform(wave)
	s.timeline.SeekTime(p.Document.Playhead)
	s.hist.Reset()
	s.hist.Seed(history.NewSnapshot(s.store.List(), style))
}

func (s *Session) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Session) RenameProject(ctx context.Context, name string) error {
	s.mu.Lock()
	id := s.projectID
	s.mu.Unlock()
	if id == "" {
		return ErrNoProject
	}
	if err := s.repo.RenameProject(ctx, id, name); err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	s.mu.Lock()
	s.projectName = name
	s.mu.Unlock()
	return nil
}

// Apply runs a discrete edit against the store and commits the result as one
// undo step. Failed edits leave history and the persisted document untouched.
func (s *Session) Apply(mutate func(*caption.Store) error) error {
	if err := mutate(s.store); err != nil {
		return err
	}
	s.commit()
	return nil
}

func (s *Session) AddCaption(text string) (caption.Entity, error) {
	var e caption.Entity
	err := s.Apply(func(st *caption.Store) error {
		var err error
		e, err = st.AddAfterLast(text)
		return err
	})
	return e, err
}

func (s *Session) AddTextElement(kind template.ElementKind, text string) (caption.Entity, error) {
	start, end := s.elementRange()
	var e caption.Entity
	err := s.Apply(func(st *caption.Store) error {
		var err error
		e, err = st.AddTextElement(template.NewTextElement(kind, text, start, end))
		return err
	})
	return e, err
}

func (s *Session) AddPresetElement(presetID string) (caption.Entity, error) {
	presets, err := template.TextPresets()
	if err != nil {
		return caption.Entity{}, err
	}
	var found *template.TextPreset
	for i := range presets {
		if presets[i].ID == presetID {
			found = &presets[i]
			break
		}
	}
	if found == nil {
		return caption.Entity{}, fmt.Errorf("project: unknown text preset %q", presetID)
	}

	start, end := s.elementRange()
	var e caption.Entity
	err = s.Apply(func(st *caption.Store) error {
		var err error
		e, err = st.AddTextElement(template.NewPresetElement(*found, start, end))
		return err
	})
	return e, err
}

// elementRange places a new text element. It aligns with the speech caption
// under the playhead when one is active, otherwise it starts at the playhead.
func (s *Session) elementRange() (start, end float64) {
	now := s.timeline.Playhead()
	for _, e := range s.store.ActiveAt(now) {
		if !e.IsTextElement {
			return e.StartTime, e.EndTime
		}
	}
	start = now
	end = start + defaultElementDuration
	if d := s.store.Duration(); d > 0 && end > d {
		end = d
	}
	return start, end
}

func (s *Session) UpdateCaption(id string, p caption.Patch) (caption.Entity, error) {
	var e caption.Entity
	err := s.Apply(func(st *caption.Store) error {
		var err error
		e, err = st.Update(id, p)
		return err
	})
	return e, err
}

func (s *Session) SplitCaption(id string, atTextOffset int) (first, second caption.Entity, err error) {
	err = s.Apply(func(st *caption.Store) error {
		var err error
		first, second, err = st.Split(id, atTextOffset)
		return err
	})
	return first, second, err
}

func (s *Session) MergeCaption(id string) (caption.Entity, error) {
	var e caption.Entity
	err := s.Apply(func(st *caption.Store) error {
		var err error
		e, err = st.Merge(id)
		return err
	})
	return e, err
}

func (s *Session) RemoveCaption(id string) error {
	return s.Apply(func(st *caption.Store) error {
		return st.Remove(id)
	})
}

func (s *Session) ApplyWordStyle(id string, wordIndex int, p caption.WordStylePatch) error {
	return s.Apply(func(st *caption.Store) error {
		return st.UpdateWordStyle(id, wordIndex, p)
	})
}

// UpdateStyle replaces the global caption style as one undo step.
func (s *Session) UpdateStyle(st caption.Style) {
	s.SetStyle(st)
	s.commit()
}

// ApplyTemplate layers a style template over the current global style.
func (s *Session) ApplyTemplate(id string) (caption.Style, error) {
	tpl, err := template.Find(id)
	if err != nil {
		return caption.Style{}, err
	}
	next := tpl.Apply(s.Style())
	s.UpdateStyle(next)
	s.logger.Info("template applied", "template_id", id)
	return next, nil
}

// Undo steps the document back one committed edit. It reports false at the
// history boundary.
func (s *Session) Undo() bool {
	snap, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

// Redo re-applies the next undone edit, if any.
func (s *Session) Redo() bool {
	snap, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.restore(snap)
	return true
}

func (s *Session) restore(snap history.Snapshot) {
	s.store.ReplaceAll(snap.Captions)
	s.SetStyle(snap.Style)
	s.persist()
}

// commit records the current document as the newest undo step and writes it
// through to SQLite. One call per discrete edit or finished gesture.
func (s *Session) commit() {
	s.hist.Push(history.NewSnapshot(s.store.List(), s.Style()))
	s.persist()
}

func (s *Session) persist() {
	s.mu.Lock()
	id := s.projectID
	wave := s.waveform
	style := s.style
	s.mu.Unlock()
	if id == "" {
		return
	}

	doc := Document{
		Captions: s.store.List(),
		Style:    style,
		Waveform: wave,
		Playhead: s.timeline.Playhead(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.UpdateProjectDocument(ctx, id, doc); err != nil {
		s.logger.Error("failed to persist document", "project_id", id, "error", err)
	}
}

// Generate uploads the media to the transcription service and replaces the
// caption document with the result. When the style carries a target language
// the segments are translated before they land in the store. On any failure
// the current document is left exactly as it was.
func (s *Session) Generate(ctx context.Context, mediaBytes []byte, filename, language string) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.generating = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.generating = false
		s.mu.Unlock()
	}()

	if int64(len(mediaBytes)) > s.cfg.MaxUploadBytes() {
		return ErrUploadTooLarge
	}

	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, s.cfg.TimeoutTranscribe())
	defer cancel()
	result, err := s.cloud.Transcriber().Transcribe(tctx, mediaBytes, filename, language)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	segments := result.Segments

	if target := s.Style().TargetLanguage; target != "" {
		xctx, cancel := context.WithTimeout(ctx, s.cfg.TimeoutTranslate())
		defer cancel()
		segments, err = s.cloud.Translator().Translate(xctx, segments, target)
		if err != nil {
			return fmt.Errorf("translate: %w", err)
		}
	}

	entities := make([]caption.Entity, 0, len(segments))
	for _, seg := range segments {
		entities = append(entities, caption.Entity{
			ID:        caption.NewID(),
			Text:      seg.Text,
			StartTime: seg.Start,
			EndTime:   seg.End,
		})
	}

	s.store.ReplaceAll(entities)
	s.hist.Reset()
	s.hist.Seed(history.NewSnapshot(s.store.List(), s.Style()))
	s.persist()

	s.logger.Info("captions generated",
		"segments", len(entities),
		"language", language,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// ExtractWaveform pulls the audio envelope out of the open project's video.
// When extraction fails the session keeps a synthetic placeholder so the
// timeline still has something to snap against.
func (s *Session) ExtractWaveform(videoPath string) []float64 {
	wave, err := s.extractor.Extract(videoPath)
	if err != nil {
		s.logger.Warn("waveform extraction failed, using placeholder", "path", videoPath, "error", err)
		wave = media.Placeholder(s.cfg.WaveformSamples())
	}
	s.mu.Lock()
	s.waveform = wave
	s.mu.Unlock()
	s.timeline.SetWaveform(wave)
	s.persist()
	return wave
}

// Export renders the speech captions in the given subtitle format and returns
// the content together with a download file name.
func (s *Session) Export(format export.Format) (content, filename string, err error) {
	content, err = export.Generate(s.store.List(), format)
	if err != nil {
		return "", "", err
	}
	return content, export.FileName(s.ProjectName(), format), nil
}

// CopyCaptions puts the plain-text caption dump on the system clipboard.
func (s *Session) CopyCaptions() error {
	return export.CopyToClipboard(s.store.List())
}

// RenderExport burns the captions into the video server-side. It deducts one
// credit up front and tracks the job in the export_jobs table.
func (s *Session) RenderExport(ctx context.Context, quality string) (*ExportJob, error) {
	s.mu.Lock()
	if s.exporting {
		s.mu.Unlock()
		return nil, ErrExportInFlight
	}
	s.exporting = true
	id := s.projectID
	videoPath := s.videoPath
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.exporting = false
		s.mu.Unlock()
	}()

	if id == "" {
		return nil, ErrNoProject
	}
	if quality == "" {
		quality = "standard"
	}

	if _, err := s.cloud.Credit().DeductCredit(ctx); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &ExportJob{
		ID:        caption.NewID(),
		ProjectID: id,
		Quality:   quality,
		Status:    ExportStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateExportJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}
	if err := s.repo.UpdateExportJob(ctx, job.ID, ExportStatusProcessing, "", ""); err != nil {
		s.logger.Error("failed to mark export job processing", "job_id", job.ID, "error", err)
	}
	job.Status = ExportStatusProcessing

	rctx, cancel := context.WithTimeout(ctx, s.cfg.TimeoutRender())
	defer cancel()
	result, err := s.cloud.Renderer().Render(rctx, cloud.RenderRequest{
		VideoURL: videoPath,
		Captions: s.store.List(),
		Style:    s.Style(),
		Quality:  quality,
	})
	if err != nil {
		if uerr := s.repo.UpdateExportJob(ctx, job.ID, ExportStatusFailed, "", err.Error()); uerr != nil {
			s.logger.Error("failed to mark export job failed", "job_id", job.ID, "error", uerr)
		}
		job.Status = ExportStatusFailed
		job.Error = err.Error()
		return job, err
	}

	if err := s.repo.UpdateExportJob(ctx, job.ID, ExportStatusCompleted, result.VideoURL, ""); err != nil {
		s.logger.Error("failed to mark export job completed", "job_id", job.ID, "error", err)
	}
	job.Status = ExportStatusCompleted
	job.VideoURL = result.VideoURL
	s.logger.Info("render export finished", "job_id", job.ID, "quality", quality)
	return job, nil
}

func (s *Session) ExportJobs(ctx context.Context) ([]*ExportJob, error) {
	s.mu.Lock()
	id := s.projectID
	s.mu.Unlock()
	if id == "" {
		return nil, ErrNoProject
	}
	return s.repo.ListExportJobs(ctx, id)
}

func (s *Session) Credits(ctx context.Context) (cloud.Credits, error) {
	return s.cloud.Credit().Credits(ctx)
}

// Frame resolves what the overlay shows at the given playback time.
func (s *Session) Frame(now float64) overlay.Frame {
	return overlay.Render(s.store.List(), s.Style(), now)
}
