package workflow

import (
	"sort"

	"lead-board-backend/pkg/models"
)

// MatchLevel 技能匹配档位
type MatchLevel string

const (
	MatchPerfect MatchLevel = "perfect" // has every required skill
	MatchPartial MatchLevel = "partial" // has at least one
	MatchNone    MatchLevel = "none"
)

// Recommendation is one ranked roster entry for an opportunity.
type Recommendation struct {
	Profile       models.ProfileWithStats `json:"profile"`
	Match         MatchLevel              `json:"match"`
	MatchedSkills int                     `json:"matched_skills"`
}

// RankMembers orders the roster for an opportunity's required skill set:
// perfect matches first, then partial, then none, each tier alphabetical by
// name. An empty requirement set makes everyone a perfect match.
func RankMembers(requiredSkillIDs []string, roster []models.ProfileWithStats) []Recommendation {
	required := make(map[string]bool, len(requiredSkillIDs))
	for _, id := range requiredSkillIDs {
		required[id] = true
	}

	recs := make([]Recommendation, 0, len(roster))
	for _, member := range roster {
		// 成员技能去重，重复ID只算一次
		seen := make(map[string]bool, len(member.SkillIDs))
		matched := 0
		for _, id := range member.SkillIDs {
			if required[id] && !seen[id] {
				seen[id] = true
				matched++
			}
		}
		level := MatchNone
		switch {
		case matched == len(required):
			level = MatchPerfect
		case matched > 0:
			level = MatchPartial
		}
		recs = append(recs, Recommendation{
			Profile:       member,
			Match:         level,
			MatchedSkills: matched,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := tierOrder(recs[i].Match), tierOrder(recs[j].Match)
		if ri != rj {
			return ri < rj
		}
		return recs[i].Profile.Name < recs[j].Profile.Name
	})
	return recs
}

func tierOrder(m MatchLevel) int {
	switch m {
	case MatchPerfect:
		return 0
	case MatchPartial:
		return 1
	default:
		return 2
	}
}
