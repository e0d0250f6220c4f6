package models

import "time"

// Profile represents a team member who can be assigned opportunities
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password_hash"` // Never return password in JSON
	Role      string    `json:"role,omitempty" db:"role"`
	SkillIDs  []string  `json:"skill_ids" db:"-"` // from user_skills join table
	Skills    []Skill   `json:"skills,omitempty" db:"-"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AssignmentCounts 按成员统计的机会数量（实时计算，不落库）
type AssignmentCounts struct {
	Active    int `json:"active"`    // status = assigned
	Completed int `json:"completed"` // status = done
}

// ProfileWithStats is a profile plus its derived opportunity counts
type ProfileWithStats struct {
	Profile
	ActiveCount    int `json:"active_count"`
	CompletedCount int `json:"completed_count"`
}
