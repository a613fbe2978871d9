package project

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=project
type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*Project, error)
	ListProjects(ctx context.Context, filter ListFilter) ([]*Project, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Title        string
	Description  string
	Goal         Goal
	TargetAmount int64
	ImageURL     *string
	CreatorID    uuid.UUID
}

type ListFilter struct {
	Goal      *Goal
	CreatorID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Project, error) {
	if params.Title == "" {
		return nil, fmt.Errorf("title is required")
	}

	if !params.Goal.Valid() {
		return nil, fmt.Errorf("invalid sdg goal %d", params.Goal)
	}

	if params.TargetAmount <= 0 {
		return nil, fmt.Errorf("target amount must be positive")
	}

	p := &Project{
		Title:        params.Title,
		Description:  params.Description,
		Goal:         params.Goal,
		TargetAmount: params.TargetAmount,
		ImageURL:     params.ImageURL,
		CreatorID:    params.CreatorID,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Project, error) {
	return s.repo.GetProject(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Project, error) {
	return s.repo.ListProjects(ctx, filter)
}
