package models

import (
	"strings"
	"time"
)

// Urgency 机会紧急程度（由AI分析得出，可人工修改）
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// OpportunityStatus 机会在看板上的生命周期状态
type OpportunityStatus string

const (
	StatusNew       OpportunityStatus = "new"
	StatusAssigned  OpportunityStatus = "assigned"
	StatusDone      OpportunityStatus = "done"
	StatusCancelled OpportunityStatus = "cancelled"
	StatusArchived  OpportunityStatus = "archived"
)

// IsTerminal reports whether the status removes the opportunity from the active board.
func (s OpportunityStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusArchived
}

// IsValid reports whether the status is one of the known workflow states.
func (s OpportunityStatus) IsValid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusDone, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Opportunity represents a sales lead moving through the board workflow
type Opportunity struct {
	ID              string            `json:"id" db:"id"`
	ClientID        string            `json:"client_id" db:"client_id"`
	OriginalMessage string            `json:"original_message" db:"original_message"`
	Summary         string            `json:"summary" db:"summary"`
	Urgency         Urgency           `json:"urgency" db:"urgency"`
	Status          OpportunityStatus `json:"status" db:"status"`
	AssigneeID      *string           `json:"assignee_id,omitempty" db:"assignee_id"`
	SkillIDs        []string          `json:"skill_ids" db:"-"` // from opportunity_skill join table
	Skills          []Skill           `json:"skills,omitempty" db:"-"`
	Client          *Client           `json:"client,omitempty" db:"-"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// ParseUrgency 把任意大小写的优先级文本映射到紧急程度，未知值回退为 medium
func ParseUrgency(s string) Urgency {
	switch {
	case strings.EqualFold(s, "high"):
		return UrgencyHigh
	case strings.EqualFold(s, "low"):
		return UrgencyLow
	default:
		return UrgencyMedium
	}
}
