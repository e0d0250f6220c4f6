package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/models"
)

func member(name string, skillIDs ...string) models.ProfileWithStats {
	return models.ProfileWithStats{
		Profile: models.Profile{
			ID:       "id-" + name,
			Name:     name,
			SkillIDs: skillIDs,
		},
	}
}

func TestRankMembers(t *testing.T) {
	required := []string{"react", "node"}

	t.Run("partitions into perfect, partial, none", func(t *testing.T) {
		roster := []models.ProfileWithStats{
			member("Nadia"),                 // none
			member("Omar", "react"),         // partial
			member("Ada", "react", "node"),  // perfect
			member("Bea", "node", "python"), // partial
		}

		recs := RankMembers(required, roster)
		require.Len(t, recs, 4)

		assert.Equal(t, "Ada", recs[0].Profile.Name)
		assert.Equal(t, MatchPerfect, recs[0].Match)
		assert.Equal(t, 2, recs[0].MatchedSkills)

		assert.Equal(t, "Bea", recs[1].Profile.Name)
		assert.Equal(t, MatchPartial, recs[1].Match)
		assert.Equal(t, "Omar", recs[2].Profile.Name)
		assert.Equal(t, MatchPartial, recs[2].Match)

		assert.Equal(t, "Nadia", recs[3].Profile.Name)
		assert.Equal(t, MatchNone, recs[3].Match)
	})

	t.Run("each tier is alphabetical", func(t *testing.T) {
		roster := []models.ProfileWithStats{
			member("Zoe", "react", "node"),
			member("Al", "react", "node"),
			member("Mia", "react", "node"),
		}

		recs := RankMembers(required, roster)
		require.Len(t, recs, 3)
		assert.Equal(t, "Al", recs[0].Profile.Name)
		assert.Equal(t, "Mia", recs[1].Profile.Name)
		assert.Equal(t, "Zoe", recs[2].Profile.Name)
	})

	t.Run("empty requirement makes everyone perfect", func(t *testing.T) {
		roster := []models.ProfileWithStats{
			member("Bo"),
			member("Al", "react"),
		}

		recs := RankMembers(nil, roster)
		require.Len(t, recs, 2)
		for _, rec := range recs {
			assert.Equal(t, MatchPerfect, rec.Match)
		}
		assert.Equal(t, "Al", recs[0].Profile.Name)
	})

	t.Run("extra skills do not change the tier", func(t *testing.T) {
		roster := []models.ProfileWithStats{
			member("Uli", "react", "node", "devops", "design"),
		}

		recs := RankMembers(required, roster)
		require.Len(t, recs, 1)
		assert.Equal(t, MatchPerfect, recs[0].Match)
		assert.Equal(t, 2, recs[0].MatchedSkills)
	})

	t.Run("duplicate member skills count once", func(t *testing.T) {
		roster := []models.ProfileWithStats{
			member("Dup", "react", "react"),
		}

		recs := RankMembers(required, roster)
		require.Len(t, recs, 1)
		// 两个react不等于 react+node
		assert.Equal(t, MatchPartial, recs[0].Match)
		assert.Equal(t, 1, recs[0].MatchedSkills)
	})

	t.Run("empty roster yields empty result", func(t *testing.T) {
		recs := RankMembers(required, nil)
		assert.Empty(t, recs)
	})
}
