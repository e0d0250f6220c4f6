package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"
)

func seedSkill(t *testing.T, db database.DatabaseInterface, name string) models.Skill {
	t.Helper()
	skill := models.Skill{Name: name, CreatedAt: time.Now()}
	require.NoError(t, db.CreateSkill(&skill))
	return skill
}

func TestNormalizeSkillName(t *testing.T) {
	cases := map[string]string{
		"React":       "react",
		" Front-End ": "frontend",
		"node_js":     "nodejs",
		"Node.js":     "nodejs",
		"UI Design":   "uidesign",
		"":            "",
		"  ":          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeSkillName(in), "input %q", in)
	}
}

func TestSkillResolver_Resolve(t *testing.T) {
	t.Run("matches existing skills despite formatting", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		react := seedSkill(t, db, "React")
		node := seedSkill(t, db, "Node.js")

		resolver := NewSkillResolver(db)
		resolved, err := resolver.Resolve([]string{"react", "node js"})
		require.NoError(t, err)
		require.Len(t, resolved, 2)
		assert.Equal(t, react.ID, resolved[0].ID)
		assert.Equal(t, node.ID, resolved[1].ID)

		// 没有新建技能
		skills, err := db.ListSkills()
		require.NoError(t, err)
		assert.Len(t, skills, 2)
	})

	t.Run("creates rows for genuine misses", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		seedSkill(t, db, "React")

		resolver := NewSkillResolver(db)
		resolved, err := resolver.Resolve([]string{"data migration"})
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, "data migration", resolved[0].Name)
		assert.NotEmpty(t, resolved[0].ID)

		skills, err := db.ListSkills()
		require.NoError(t, err)
		assert.Len(t, skills, 2)
	})

	t.Run("deduplicates suggested names", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		resolver := NewSkillResolver(db)

		resolved, err := resolver.Resolve([]string{"DevOps", "dev-ops", "devops", ""})
		require.NoError(t, err)
		require.Len(t, resolved, 1)

		skills, err := db.ListSkills()
		require.NoError(t, err)
		assert.Len(t, skills, 1)
	})

	t.Run("substring containment counts as a match", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		frontend := seedSkill(t, db, "frontend")

		resolver := NewSkillResolver(db)
		resolved, err := resolver.Resolve([]string{"frontend development"})
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, frontend.ID, resolved[0].ID)
	})

	t.Run("created skill is visible to the next resolve", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		resolver := NewSkillResolver(db)

		first, err := resolver.Resolve([]string{"kubernetes"})
		require.NoError(t, err)
		require.Len(t, first, 1)

		// 缓存已失效，第二次解析命中已建档的技能
		second, err := resolver.Resolve([]string{"Kubernetes"})
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, first[0].ID, second[0].ID)
	})
}
