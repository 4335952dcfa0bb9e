// Package project owns editing sessions: the entity store, history,
// gesture controllers, persistence and the AI generation pipeline for
// one open project.
package project

import (
	"time"

	"github.com/captionstudio/captionstudio-agent/internal/caption"
)

// Project is one video plus its caption document.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VideoPath string    `json:"video_path"`
	FileID    string    `json:"file_id"`
	Duration  float64   `json:"duration"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is the persisted editor state. It round-trips through the
// projects table as JSON so a restarted agent restores exactly what
// the user left.
type Document struct {
	Captions []caption.Entity `json:"captions"`
	Style    caption.Style    `json:"caption_style"`
	Waveform []float64        `json:"waveform,omitempty"`
	Playhead float64          `json:"playhead"`
}

// Export job lifecycle states.
const (
	ExportStatusPending    = "pending"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

// ExportJob tracks one cloud render request.
type ExportJob struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Quality   string    `json:"quality"`
	Status    string    `json:"status"`
	VideoURL  string    `json:"video_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
