package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecodonate/ecodonate/internal/project"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectProjectColumns = `
	p.id, p.title, p.description, p.sdg_goal, p.target_amount, p.current_amount,
	p.image_url, p.creator_id, p.created_at
`

// scanProject reads a project row from the scanner.
// Expected column order: id, title, description, sdg_goal, target_amount, current_amount, image_url, creator_id, created_at
func scanProject(s scanner) (*project.Project, error) {
	var p project.Project

	var goal int

	var imageURL sql.NullString

	if err := s.Scan(
		&p.ID, &p.Title, &p.Description, &goal, &p.TargetAmount, &p.CurrentAmount,
		&imageURL, &p.CreatorID, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.Goal = project.Goal(goal)

	if imageURL.Valid {
		p.ImageURL = &imageURL.String
	}

	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	query := `
		INSERT INTO projects (title, description, sdg_goal, target_amount, current_amount, image_url, creator_id, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, NOW())
		RETURNING id, current_amount, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		p.Title,
		p.Description,
		int(p.Goal),
		p.TargetAmount,
		p.ImageURL,
		p.CreatorID,
	).Scan(&p.ID, &p.CurrentAmount, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	return nil
}

func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	query := `SELECT ` + selectProjectColumns + `
		FROM projects p
		WHERE p.id = $1`

	p, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, project.ErrNotFound
		}

		return nil, fmt.Errorf("getting project: %w", err)
	}

	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, filter project.ListFilter) ([]*project.Project, error) {
	query := `SELECT ` + selectProjectColumns + `
		FROM projects p
		WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Goal != nil {
		query += fmt.Sprintf(" AND p.sdg_goal = $%d", argIdx)

		args = append(args, int(*filter.Goal))
		argIdx++
	}

	if filter.CreatorID != nil {
		query += fmt.Sprintf(" AND p.creator_id = $%d", argIdx)

		args = append(args, *filter.CreatorID)
		argIdx++
	}

	query += " ORDER BY p.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project

	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}

		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}

	return projects, nil
}
