package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
	"github.com/captionstudio/captionstudio-agent/internal/cloud"
	"github.com/captionstudio/captionstudio-agent/internal/export"
	"github.com/captionstudio/captionstudio-agent/internal/project"
	"github.com/captionstudio/captionstudio-agent/internal/template"
	"github.com/captionstudio/captionstudio-agent/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/project", currentProjectHandler(cfg))
		r.Post("/project/new", newProjectHandler(cfg))
		r.Post("/project/load/{id}", loadProjectHandler(cfg))
		r.Post("/project/rename", renameProjectHandler(cfg))
		r.Post("/project/video", extractWaveformHandler(cfg))
		r.Post("/project/generate", generateHandler(cfg))

		r.Get("/captions", listCaptionsHandler(cfg))
		r.Post("/captions", addCaptionHandler(cfg))
		r.Post("/captions/text-element", addTextElementHandler(cfg))
		r.Patch("/captions/{id}", updateCaptionHandler(cfg))
		r.Delete("/captions/{id}", deleteCaptionHandler(cfg))
		r.Post("/captions/{id}/split", splitCaptionHandler(cfg))
		r.Post("/captions/{id}/merge", mergeCaptionHandler(cfg))

		r.Get("/style", getStyleHandler(cfg))
		r.Post("/style", setStyleHandler(cfg))
		r.Post("/style/template/{name}", applyTemplateHandler(cfg))
		r.Get("/templates", listTemplatesHandler(cfg))
		r.Get("/templates/text-presets", listTextPresetsHandler(cfg))

		r.Post("/timeline/gesture/start", timelineGestureStartHandler(cfg))
		r.Post("/timeline/gesture/move", timelineGestureMoveHandler(cfg))
		r.Post("/timeline/gesture/end", timelineGestureEndHandler(cfg))
		r.Post("/timeline/seek", seekHandler(cfg))
		r.Post("/timeline/view", viewHandler(cfg))
		r.Get("/timeline/waveform", waveformHandler(cfg))

		r.Get("/overlay/frame", overlayFrameHandler(cfg))
		r.Post("/overlay/anchor-drag", overlayAnchorDragHandler(cfg))
		r.Post("/overlay/element-drag", overlayElementDragHandler(cfg))
		r.Post("/overlay/resize", overlayResizeHandler(cfg))
		r.Post("/overlay/word-drag", overlayWordDragHandler(cfg))
		r.Post("/overlay/word-style", wordStyleHandler(cfg))

		r.Post("/undo", undoHandler(cfg))
		r.Post("/redo", redoHandler(cfg))

		r.Get("/export/jobs", listExportJobsHandler(cfg))
		r.Get("/export/{format}", exportFileHandler(cfg))
		r.Post("/export/copy", exportCopyHandler(cfg))
		r.Post("/export/video", exportVideoHandler(cfg))

		r.Get("/credits", creditsHandler(cfg))
		r.Get("/playback/video", playbackHandler(cfg))
		r.Post("/playback/state", playbackStateHandler(cfg))
	})

	return r
}

// writeDomainError maps session and store errors onto the API error shape.
func writeDomainError(w http.ResponseWriter, err error) {
	var transcribeErr *cloud.TranscribeError
	var translateErr *cloud.TranslateError
	var renderErr *cloud.RenderError
	switch {
	case errors.Is(err, caption.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, project.ErrNoProject):
		WriteError(w, http.StatusNotFound, err.Error(), "NO_PROJECT")
	case errors.Is(err, caption.ErrInvalidEdit), errors.Is(err, caption.ErrTextElementLimit):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_EDIT")
	case errors.As(err, &transcribeErr):
		WriteError(w, http.StatusBadGateway, err.Error(), "TRANSCRIPTION_ERROR")
	case errors.As(err, &translateErr):
		WriteError(w, http.StatusBadGateway, err.Error(), "TRANSLATION_ERROR")
	case errors.As(err, &renderErr):
		WriteError(w, http.StatusBadGateway, err.Error(), "RENDER_ERROR")
	case errors.Is(err, cloud.ErrInsufficientCredits):
		WriteError(w, http.StatusPaymentRequired, err.Error(), "INSUFFICIENT_CREDITS")
	case errors.Is(err, project.ErrGenerationInFlight), errors.Is(err, project.ErrExportInFlight):
		WriteError(w, http.StatusConflict, err.Error(), "IN_FLIGHT")
	case errors.Is(err, project.ErrUploadTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), "UPLOAD_TOO_LARGE")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := cfg.Session
		tl := s.Timeline()
		WriteJSON(w, http.StatusOK, StatusResponse{
			ProjectID:   s.ProjectID(),
			ProjectName: s.ProjectName(),
			Playhead:    tl.Playhead(),
			Playing:     s.Playing(),
			Zoom:        tl.Zoom(),
			ScrollPos:   tl.ScrollPos(),
			Captions:    len(s.Store().List()),
			CanUndo:     s.CanUndo(),
			CanRedo:     s.CanRedo(),
		})
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Session.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func currentProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := cfg.Session.ProjectID()
		if id == "" {
			writeDomainError(w, project.ErrNoProject)
			return
		}
		p, err := cfg.Repository.GetProject(r.Context(), id)
		if err != nil || p == nil {
			WriteError(w, http.StatusInternalServerError, "failed to load project", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func newProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NewProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}

		p, err := cfg.Session.NewProject(r.Context(), req.Name, req.VideoPath, req.FileID, req.Duration)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, ProjectToResponse(p))
	}
}

func loadProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var (
			p   *project.Project
			err error
		)
		if id == "latest" {
			p, err = cfg.Session.LoadLatest(r.Context())
		} else {
			p, err = cfg.Session.LoadProject(r.Context(), id)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func renameProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenameProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.RenameProject(r.Context(), req.Name); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func extractWaveformHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := cfg.Session.VideoPath()
		if path == "" {
			writeDomainError(w, project.ErrNoProject)
			return
		}
		samples := cfg.Session.ExtractWaveform(path)
		WriteJSON(w, http.StatusOK, WaveformResponse{Samples: samples})
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.MediaPath == "" {
			WriteError(w, http.StatusBadRequest, "media_path is required", "BAD_REQUEST")
			return
		}

		data, err := os.ReadFile(req.MediaPath)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "cannot read media file", "BAD_REQUEST")
			return
		}
		language := req.Language
		if language == "" {
			language = "en"
		}

		if err := cfg.Session.Generate(r.Context(), data, filepath.Base(req.MediaPath), language); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, GenerateResponse{Captions: cfg.Session.Store().List()})
	}
}

func listCaptionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, CaptionsResponse{
			Captions: cfg.Session.Store().List(),
			Style:    cfg.Session.Style(),
		})
	}
}

func addCaptionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddCaptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		text := req.Text
		if text == "" {
			text = "New caption"
		}
		e, err := cfg.Session.AddCaption(text)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, e)
	}
}

func addTextElementHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddTextElementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var (
			e   caption.Entity
			err error
		)
		if req.PresetID != "" {
			e, err = cfg.Session.AddPresetElement(req.PresetID)
		} else {
			text := req.Text
			if text == "" {
				text = "New text"
			}
			e, err = cfg.Session.AddTextElement(template.ElementKind(req.Kind), text)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, e)
	}
}

func updateCaptionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req UpdateCaptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		e, err := cfg.Session.UpdateCaption(id, caption.Patch{
			Text:        req.Text,
			StartTime:   req.StartTime,
			EndTime:     req.EndTime,
			Animation:   req.Animation,
			CustomStyle: req.CustomStyle,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	}
}

func deleteCaptionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.RemoveCaption(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitCaptionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req SplitCaptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		first, second, err := cfg.Session.SplitCaption(id, req.AtTextOffset)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitCaptionResponse{First: first, Second: second})
	}
}

func mergeCaptionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cfg.Session.MergeCaption(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, e)
	}
}

func getStyleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StyleResponse{Style: cfg.Session.Style()})
	}
}

func setStyleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st caption.Style
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.UpdateStyle(st)
		WriteJSON(w, http.StatusOK, StyleResponse{Style: cfg.Session.Style()})
	}
}

func applyTemplateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := cfg.Session.ApplyTemplate(chi.URLParam(r, "name"))
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, StyleResponse{Style: st})
	}
}

func listTemplatesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := template.All()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load templates", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, templates)
	}
}

func listTextPresetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		presets, err := template.TextPresets()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load text presets", "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, presets)
	}
}

func gestureState(cfg ServerConfig) GestureStateResponse {
	tl := cfg.Session.Timeline()
	snap := tl.SnapIndicator()
	return GestureStateResponse{
		Dragging:  tl.Dragging(),
		SnapTime:  snap.Time,
		Snapped:   snap.Snapped,
		SnapType:  string(snap.Type),
		Playhead:  tl.Playhead(),
		ScrollPos: tl.ScrollPos(),
		Zoom:      tl.Zoom(),
	}
}

func timelineGestureStartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GestureStartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.CaptionID == "" || req.Width <= 0 {
			WriteError(w, http.StatusBadRequest, "caption_id and width are required", "BAD_REQUEST")
			return
		}

		kind := timeline.DragType(req.Kind)
		switch kind {
		case timeline.DragMove, timeline.DragResizeLeft, timeline.DragResizeRight:
		default:
			WriteError(w, http.StatusBadRequest, "unknown gesture kind", "BAD_REQUEST")
			return
		}

		if err := cfg.Session.Timeline().BeginDrag(req.CaptionID, kind, req.X, req.Width); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, gestureState(cfg))
	}
}

func timelineGestureMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GestureMoveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Session.Timeline().DragTo(req.X); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, gestureState(cfg))
	}
}

func timelineGestureEndHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.Timeline().EndDrag(); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, gestureState(cfg))
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var playhead float64
		if req.Width > 0 {
			playhead = cfg.Session.Timeline().Seek(req.X, req.Width)
		} else {
			playhead = cfg.Session.Timeline().SeekTime(req.Time)
		}
		WriteJSON(w, http.StatusOK, SeekResponse{Playhead: playhead})
	}
}

func viewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		tl := cfg.Session.Timeline()
		if req.Zoom != nil {
			tl.SetZoom(*req.Zoom)
		}
		if req.ScrollDelta != nil {
			tl.Scroll(*req.ScrollDelta)
		}
		WriteJSON(w, http.StatusOK, ViewResponse{Zoom: tl.Zoom(), ScrollPos: tl.ScrollPos()})
	}
}

func waveformHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, WaveformResponse{Samples: cfg.Session.Waveform()})
	}
}

func overlayFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now, err := strconv.ParseFloat(r.URL.Query().Get("t"), 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "query parameter t must be a time in seconds", "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Session.Frame(now))
	}
}

func overlayAnchorDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OverlayGestureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		ed := cfg.Session.Editor()
		var err error
		switch req.Phase {
		case "start":
			err = ed.BeginCaptionDrag(req.Y, req.Height)
		case "move":
			err = ed.DragCaptionTo(req.Y)
		case "end":
			err = ed.EndGesture()
		default:
			WriteError(w, http.StatusBadRequest, "unknown gesture phase", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, StyleResponse{Style: cfg.Session.Style()})
	}
}

func overlayElementDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OverlayGestureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		ed := cfg.Session.Editor()
		var err error
		switch req.Phase {
		case "start":
			err = ed.BeginElementDrag(req.CaptionID, req.X, req.Y, req.Width, req.Height)
		case "move":
			err = ed.DragElementTo(req.X, req.Y)
		case "end":
			err = ed.EndGesture()
		default:
			WriteError(w, http.StatusBadRequest, "unknown gesture phase", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func overlayResizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OverlayGestureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		ed := cfg.Session.Editor()
		var err error
		switch req.Phase {
		case "start":
			if req.CaptionID != "" {
				err = ed.BeginElementResize(req.CaptionID, req.X)
			} else {
				err = ed.BeginCaptionResize(req.X)
			}
		case "move":
			if req.CaptionID != "" {
				err = ed.ResizeElementTo(req.X)
			} else {
				err = ed.ResizeCaptionTo(req.X)
			}
		case "end":
			err = ed.EndGesture()
		default:
			WriteError(w, http.StatusBadRequest, "unknown gesture phase", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func overlayWordDragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OverlayGestureRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		ed := cfg.Session.Editor()
		var err error
		switch req.Phase {
		case "start":
			err = ed.BeginWordDrag(req.CaptionID, req.WordIndex, req.X, req.Y)
		case "move":
			err = ed.DragWordTo(req.X, req.Y)
		case "end":
			err = ed.EndGesture()
		default:
			WriteError(w, http.StatusBadRequest, "unknown gesture phase", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func wordStyleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WordStyleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.CaptionID == "" {
			WriteError(w, http.StatusBadRequest, "caption_id is required", "BAD_REQUEST")
			return
		}

		err := cfg.Session.ApplyWordStyle(req.CaptionID, req.WordIndex, caption.WordStylePatch{
			Color:      req.Color,
			Gradient:   req.Gradient,
			FontFamily: req.FontFamily,
			FontSize:   req.FontSize,
			FontWeight: req.FontWeight,
			Background: req.Background,
			X:          req.X,
			Y:          req.Y,
			Animation:  req.Animation,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applied := cfg.Session.Undo()
		WriteJSON(w, http.StatusOK, HistoryResponse{
			Applied: applied,
			CanUndo: cfg.Session.CanUndo(),
			CanRedo: cfg.Session.CanRedo(),
		})
	}
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		applied := cfg.Session.Redo()
		WriteJSON(w, http.StatusOK, HistoryResponse{
			Applied: applied,
			CanUndo: cfg.Session.CanUndo(),
			CanRedo: cfg.Session.CanRedo(),
		})
	}
}

func exportFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := export.Format(chi.URLParam(r, "format"))
		content, filename, err := cfg.Session.Export(format)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, ExportFileResponse{Filename: filename, Content: content})
	}
}

func exportCopyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Session.CopyCaptions(); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "CLIPBOARD_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func exportVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		job, err := cfg.Session.RenderExport(r.Context(), req.Quality)
		if err != nil {
			if job != nil {
				// The job row exists and records the failure.
				WriteJSON(w, http.StatusBadGateway, ExportJobToResponse(job))
				return
			}
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ExportJobToResponse(job))
	}
}

func listExportJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Session.ExportJobs(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := ExportJobsResponse{Jobs: make([]ExportJobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = ExportJobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func creditsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credits, err := cfg.Session.Credits(r.Context())
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "CLOUD_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, CreditsResponse{
			Plan:      credits.Plan,
			Total:     credits.Total,
			Used:      credits.Used,
			Remaining: credits.Remaining,
			ResetDate: credits.ResetDate,
		})
	}
}

func playbackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := cfg.Session.VideoPath()
		if path == "" {
			writeDomainError(w, project.ErrNoProject)
			return
		}
		if err := cfg.MediaServer.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("playback failed", "path", path, "error", err)
		}
	}
}

func playbackStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PlaybackStateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.SetPlaying(req.Playing)
		WriteJSON(w, http.StatusOK, PlaybackStateResponse{
			Playing:  cfg.Session.Playing(),
			Playhead: cfg.Session.Timeline().Playhead(),
		})
	}
}
