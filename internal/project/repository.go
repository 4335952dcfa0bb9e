package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists projects, export jobs and agent configuration.
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	GetLatestProject(ctx context.Context) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProjectDocument(ctx context.Context, id string, doc Document) error
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) error

	CreateExportJob(ctx context.Context, job *ExportJob) error
	GetExportJob(ctx context.Context, id string) (*ExportJob, error)
	ListExportJobs(ctx context.Context, projectID string) ([]*ExportJob, error)
	UpdateExportJob(ctx context.Context, id, status, videoURL, errorMsg string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	doc, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, video_path, file_id, duration, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.VideoPath, p.FileID, p.Duration, string(doc),
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, video_path, file_id, duration, document, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return r.scanProject(row)
}

func (r *SQLiteRepository) GetLatestProject(ctx context.Context) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, video_path, file_id, duration, document, created_at, updated_at
		FROM projects ORDER BY updated_at DESC LIMIT 1
	`)
	return r.scanProject(row)
}

func (r *SQLiteRepository) scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var doc, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.VideoPath, &p.FileID, &p.Duration, &doc, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(doc), &p.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, video_path, file_id, duration, document, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var doc, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.VideoPath, &p.FileID, &p.Duration, &doc, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(doc), &p.Document); err != nil {
			return nil, fmt.Errorf("unmarshal document: %w", err)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProjectDocument(ctx context.Context, id string, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE projects SET document = ?, updated_at = ? WHERE id = ?
	`, string(raw), time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) RenameProject(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, updated_at = ? WHERE id = ?
	`, name, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM export_jobs WHERE project_id = ?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, job *ExportJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, project_id, quality, status, video_url, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.ProjectID, job.Quality, job.Status, job.VideoURL, job.Error,
		job.CreatedAt.Format(time.RFC3339), job.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (*ExportJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, quality, status, video_url, error, created_at, updated_at
		FROM export_jobs WHERE id = ?
	`, id)

	var j ExportJob
	var createdAt, updatedAt string
	err := row.Scan(&j.ID, &j.ProjectID, &j.Quality, &j.Status, &j.VideoURL, &j.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListExportJobs(ctx context.Context, projectID string) ([]*ExportJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, quality, status, video_url, error, created_at, updated_at
		FROM export_jobs WHERE project_id = ? ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ExportJob
	for rows.Next() {
		var j ExportJob
		var createdAt, updatedAt string
		if err := rows.Scan(&j.ID, &j.ProjectID, &j.Quality, &j.Status, &j.VideoURL, &j.Error, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateExportJob(ctx context.Context, id, status, videoURL, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs SET status = ?, video_url = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, videoURL, errorMsg, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
