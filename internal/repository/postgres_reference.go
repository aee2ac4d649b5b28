package repository

import (
	"context"
	"database/sql"
	"fmt"

	"scentpanel/internal/domain"
)

// PostgresReferenceRepo reads the external project/sample/contact tables.
type PostgresReferenceRepo struct {
	db *sql.DB
}

func NewPostgresReferenceRepo(db *sql.DB) *PostgresReferenceRepo {
	return &PostgresReferenceRepo{db: db}
}

func (r *PostgresReferenceRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT project_code, project_ref, name
		 FROM projects
		 ORDER BY project_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ProjectCode, &p.ProjectRef, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *PostgresReferenceRepo) ListSamples(ctx context.Context, projectCode string) ([]domain.Sample, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sample_ref, project_code, label
		 FROM samples
		 WHERE project_code = $1
		 ORDER BY sample_ref`, projectCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples for project %s: %w", projectCode, err)
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var s domain.Sample
		if err := rows.Scan(&s.SampleRef, &s.ProjectCode, &s.Label); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (r *PostgresReferenceRepo) ListPanelists(ctx context.Context) ([]domain.Panelist, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT panelist_id, name, email
		 FROM panelists
		 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query panelists: %w", err)
	}
	defer rows.Close()

	var panelists []domain.Panelist
	for rows.Next() {
		var p domain.Panelist
		if err := rows.Scan(&p.PanelistID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("failed to scan panelist: %w", err)
		}
		panelists = append(panelists, p)
	}
	return panelists, rows.Err()
}

func (r *PostgresReferenceRepo) GetPanelist(ctx context.Context, panelistID string) (*domain.Panelist, error) {
	var p domain.Panelist
	err := r.db.QueryRowContext(ctx,
		`SELECT panelist_id, name, email
		 FROM panelists
		 WHERE panelist_id = $1`, panelistID).Scan(&p.PanelistID, &p.Name, &p.Email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query panelist %s: %w", panelistID, err)
	}
	return &p, nil
}
