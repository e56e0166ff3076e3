package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Project is a unit of work owned by a single user.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrDuplicateProject is returned when a user already owns a project
// with the same name.
var ErrDuplicateProject = errors.New("project name already taken")

// CreateProject inserts a new project and fills in its id and creation
// timestamp.
func (s *Session) CreateProject(ctx context.Context, project *Project) error {
	project.CreatedAt = nowUTC()

	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO projects (name, description, owner_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, project.Name, project.Description, project.OwnerID, project.CreatedAt).Scan(&project.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProject
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// FindProjectByID returns the project with the given id, or ErrNotFound.
func (s *Session) FindProjectByID(ctx context.Context, id int64) (*Project, error) {
	project := &Project{}
	err := s.tx.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM projects WHERE id = $1
	`, id).Scan(&project.ID, &project.Name, &project.Description,
		&project.OwnerID, &project.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query project: %w", err)
	}
	return project, nil
}

// ListProjects returns a page of projects ordered by creation time.
func (s *Session) ListProjects(ctx context.Context, limit, offset int) ([]*Project, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT id, name, description, owner_id, created_at
		FROM projects
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(&project.ID, &project.Name, &project.Description,
			&project.OwnerID, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project row.
func (s *Session) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
