package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/ecodonate/ecodonate/internal/project"
)

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    project.CreateParams
		setupMock func(m *project.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			params: project.CreateParams{
				Title:        "Solar for Schools",
				Description:  "Panels for rural classrooms",
				Goal:         project.GoalAffordableEnergy,
				TargetAmount: 5000000,
				CreatorID:    uuid.New(),
			},
			setupMock: func(m *project.MockRepository) {
				m.EXPECT().
					CreateProject(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *project.Project) error {
						p.ID = uuid.New()
						p.CreatedAt = time.Now()
						return nil
					})
			},
		},
		{
			name: "MissingTitle",
			params: project.CreateParams{
				Goal:         project.GoalZeroHunger,
				TargetAmount: 1000,
			},
			wantErr: true,
		},
		{
			name: "InvalidGoal",
			params: project.CreateParams{
				Title:        "Mystery",
				Goal:         project.Goal(18),
				TargetAmount: 1000,
			},
			wantErr: true,
		},
		{
			name: "NonPositiveTarget",
			params: project.CreateParams{
				Title: "Free",
				Goal:  project.GoalCleanWater,
			},
			wantErr: true,
		},
		{
			name: "RepoError",
			params: project.CreateParams{
				Title:        "Solar for Schools",
				Goal:         project.GoalAffordableEnergy,
				TargetAmount: 5000000,
			},
			setupMock: func(m *project.MockRepository) {
				m.EXPECT().
					CreateProject(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := project.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := project.NewService(repo)
			got, err := svc.Create(context.Background(), tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, got)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := project.NewMockRepository(ctrl)

	goal := project.GoalClimateAction
	filter := project.ListFilter{Goal: &goal}

	repo.EXPECT().
		ListProjects(gomock.Any(), filter).
		Return([]*project.Project{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	svc := project.NewService(repo)

	got, err := svc.List(context.Background(), filter)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
}
