package api

import (
	"time"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
	"github.com/captionstudio/captionstudio-agent/internal/project"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	ProjectID   string  `json:"project_id,omitempty"`
	ProjectName string  `json:"project_name,omitempty"`
	Playhead    float64 `json:"playhead"`
	Playing     bool    `json:"playing"`
	Zoom        float64 `json:"zoom"`
	ScrollPos   float64 `json:"scroll_pos"`
	Captions    int     `json:"captions"`
	CanUndo     bool    `json:"can_undo"`
	CanRedo     bool    `json:"can_redo"`
}

type ProjectResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	VideoPath string  `json:"video_path,omitempty"`
	FileID    string  `json:"file_id,omitempty"`
	Duration  float64 `json:"duration"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type NewProjectRequest struct {
	Name      string  `json:"name"`
	VideoPath string  `json:"video_path"`
	FileID    string  `json:"file_id,omitempty"`
	Duration  float64 `json:"duration"`
}

type RenameProjectRequest struct {
	Name string `json:"name"`
}

type GenerateRequest struct {
	MediaPath string `json:"media_path"`
	Language  string `json:"language,omitempty"`
}

type GenerateResponse struct {
	Captions []caption.Entity `json:"captions"`
}

type CaptionsResponse struct {
	Captions []caption.Entity `json:"captions"`
	Style    caption.Style    `json:"caption_style"`
}

type AddCaptionRequest struct {
	Text string `json:"text"`
}

type AddTextElementRequest struct {
	Kind     string `json:"kind,omitempty"`
	PresetID string `json:"preset_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

type UpdateCaptionRequest struct {
	Text        *string               `json:"text,omitempty"`
	StartTime   *float64              `json:"start_time,omitempty"`
	EndTime     *float64              `json:"end_time,omitempty"`
	Animation   *string               `json:"animation,omitempty"`
	CustomStyle *caption.OverlayStyle `json:"custom_style,omitempty"`
}

type SplitCaptionRequest struct {
	AtTextOffset int `json:"at_text_offset"`
}

type SplitCaptionResponse struct {
	First  caption.Entity `json:"first"`
	Second caption.Entity `json:"second"`
}

type StyleResponse struct {
	Style caption.Style `json:"caption_style"`
}

type GestureStartRequest struct {
	CaptionID string  `json:"caption_id"`
	Kind      string  `json:"kind"`
	X         float64 `json:"x"`
	Width     float64 `json:"width"`
}

type GestureMoveRequest struct {
	X float64 `json:"x"`
}

type GestureStateResponse struct {
	Dragging  bool    `json:"dragging"`
	SnapTime  float64 `json:"snap_time,omitempty"`
	Snapped   bool    `json:"snapped"`
	SnapType  string  `json:"snap_type,omitempty"`
	Playhead  float64 `json:"playhead"`
	ScrollPos float64 `json:"scroll_pos"`
	Zoom      float64 `json:"zoom"`
}

type SeekRequest struct {
	X     float64 `json:"x,omitempty"`
	Width float64 `json:"width,omitempty"`
	Time  float64 `json:"time,omitempty"`
}

type SeekResponse struct {
	Playhead float64 `json:"playhead"`
}

type PlaybackStateRequest struct {
	Playing bool `json:"playing"`
}

type PlaybackStateResponse struct {
	Playing  bool    `json:"playing"`
	Playhead float64 `json:"playhead"`
}

type ViewRequest struct {
	Zoom        *float64 `json:"zoom,omitempty"`
	ScrollDelta *float64 `json:"scroll_delta,omitempty"`
}

type ViewResponse struct {
	Zoom      float64 `json:"zoom"`
	ScrollPos float64 `json:"scroll_pos"`
}

type WaveformResponse struct {
	Samples []float64 `json:"samples"`
}

type OverlayGestureRequest struct {
	// Kind selects the gesture: caption-drag, caption-resize, element-drag,
	// element-resize or word-drag.
	Kind      string  `json:"kind"`
	Phase     string  `json:"phase"` // start, move or end
	CaptionID string  `json:"caption_id,omitempty"`
	WordIndex int     `json:"word_index,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
}

type WordStyleRequest struct {
	CaptionID  string   `json:"caption_id"`
	WordIndex  int      `json:"word_index"`
	Color      *string  `json:"color,omitempty"`
	Gradient   *string  `json:"gradient,omitempty"`
	FontFamily *string  `json:"font_family,omitempty"`
	FontSize   *int     `json:"font_size,omitempty"`
	FontWeight *string  `json:"font_weight,omitempty"`
	Background *string  `json:"background,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Animation  *string  `json:"animation,omitempty"`
}

type HistoryResponse struct {
	Applied bool `json:"applied"`
	CanUndo bool `json:"can_undo"`
	CanRedo bool `json:"can_redo"`
}

type ExportFileResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type RenderExportRequest struct {
	Quality string `json:"quality,omitempty"`
}

type ExportJobResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Quality   string `json:"quality"`
	Status    string `json:"status"`
	VideoURL  string `json:"video_url,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ExportJobsResponse struct {
	Jobs []ExportJobResponse `json:"jobs"`
}

type CreditsResponse struct {
	Plan      string `json:"plan"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	ResetDate string `json:"reset_date,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		VideoPath: p.VideoPath,
		FileID:    p.FileID,
		Duration:  p.Duration,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}

func ExportJobToResponse(j *project.ExportJob) ExportJobResponse {
	return ExportJobResponse{
		ID:        j.ID,
		ProjectID: j.ProjectID,
		Quality:   j.Quality,
		Status:    j.Status,
		VideoURL:  j.VideoURL,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}
