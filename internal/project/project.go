package project

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Goal is one of the 17 UN Sustainable Development Goals. The set is closed;
// anything outside 1..17 is rejected at the boundary.
type Goal int

const (
	GoalNoPoverty Goal = iota + 1
	GoalZeroHunger
	GoalGoodHealth
	GoalQualityEducation
	GoalGenderEquality
	GoalCleanWater
	GoalAffordableEnergy
	GoalDecentWork
	GoalIndustryInnovation
	GoalReducedInequality
	GoalSustainableCities
	GoalResponsibleConsumption
	GoalClimateAction
	GoalLifeBelowWater
	GoalLifeOnLand
	GoalPeaceJustice
	GoalPartnerships
)

var goalNames = map[Goal]string{
	GoalNoPoverty:              "No Poverty",
	GoalZeroHunger:             "Zero Hunger",
	GoalGoodHealth:             "Good Health and Well-being",
	GoalQualityEducation:       "Quality Education",
	GoalGenderEquality:         "Gender Equality",
	GoalCleanWater:             "Clean Water and Sanitation",
	GoalAffordableEnergy:       "Affordable and Clean Energy",
	GoalDecentWork:             "Decent Work and Economic Growth",
	GoalIndustryInnovation:     "Industry, Innovation, and Infrastructure",
	GoalReducedInequality:      "Reduced Inequality",
	GoalSustainableCities:      "Sustainable Cities and Communities",
	GoalResponsibleConsumption: "Responsible Consumption and Production",
	GoalClimateAction:          "Climate Action",
	GoalLifeBelowWater:         "Life Below Water",
	GoalLifeOnLand:             "Life on Land",
	GoalPeaceJustice:           "Peace, Justice, and Strong Institutions",
	GoalPartnerships:           "Partnerships for the Goals",
}

func (g Goal) Valid() bool {
	return g >= GoalNoPoverty && g <= GoalPartnerships
}

func (g Goal) String() string {
	if name, ok := goalNames[g]; ok {
		return name
	}

	return "Unknown"
}

// Goals returns the full SDG set in order, for listings and filters.
func Goals() []Goal {
	goals := make([]Goal, 0, len(goalNames))
	for g := GoalNoPoverty; g <= GoalPartnerships; g++ {
		goals = append(goals, g)
	}

	return goals
}

// Project is a fundraising project tagged with an SDG.
type Project struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Goal          Goal
	TargetAmount  int64 // Amount in cents
	CurrentAmount int64 // Amount in cents, never decreases
	ImageURL      *string
	CreatorID     uuid.UUID
	CreatedAt     time.Time
}

// PercentFunded reports funding progress rounded to one decimal place and
// capped at 100. A zero target reports 0 rather than dividing by it.
func (p *Project) PercentFunded() float64 {
	if p.TargetAmount <= 0 {
		return 0
	}

	pct := float64(p.CurrentAmount) / float64(p.TargetAmount) * 100
	pct = math.Round(pct*10) / 10

	return math.Min(100, pct)
}
