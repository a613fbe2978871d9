package project

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ecodonate/ecodonate/internal/project"
)

var printer = message.NewPrinter(language.English)

type projectResponse struct {
	ID                   uuid.UUID `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Goal                 int       `json:"goal"`
	GoalName             string    `json:"goal_name"`
	TargetAmount         int64     `json:"target_amount"`
	CurrentAmount        int64     `json:"current_amount"`
	TargetAmountDisplay  string    `json:"target_amount_display"`
	CurrentAmountDisplay string    `json:"current_amount_display"`
	PercentFunded        float64   `json:"percent_funded"`
	ImageURL             *string   `json:"image_url,omitempty"`
	CreatorID            uuid.UUID `json:"creator_id"`
	CreatedAt            time.Time `json:"created_at"`
}

func displayAmount(cents int64) string {
	return printer.Sprintf("KES %0.2f", float64(cents)/100)
}

func toResponse(p *project.Project) projectResponse {
	return projectResponse{
		ID:                   p.ID,
		Title:                p.Title,
		Description:          p.Description,
		Goal:                 int(p.Goal),
		GoalName:             p.Goal.String(),
		TargetAmount:         p.TargetAmount,
		CurrentAmount:        p.CurrentAmount,
		TargetAmountDisplay:  displayAmount(p.TargetAmount),
		CurrentAmountDisplay: displayAmount(p.CurrentAmount),
		PercentFunded:        p.PercentFunded(),
		ImageURL:             p.ImageURL,
		CreatorID:            p.CreatorID,
		CreatedAt:            p.CreatedAt,
	}
}

func toResponseList(projects []*project.Project) []projectResponse {
	resp := make([]projectResponse, len(projects))
	for i, p := range projects {
		resp[i] = toResponse(p)
	}

	return resp
}
