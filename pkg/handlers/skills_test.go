package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"
)

func TestSkills(t *testing.T) {
	t.Run("create then list", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewSkillHandler(testConfig(), db)

		rec := doRequest(h.Create, http.MethodPost, "/api/skills", map[string]string{"name": "React"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(h.List, http.MethodGet, "/api/skills", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var skills []models.Skill
		decodeData(t, rec, &skills)
		require.Len(t, skills, 1)
		assert.Equal(t, "React", skills[0].Name)
	})

	t.Run("duplicate name conflicts regardless of case", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewSkillHandler(testConfig(), db)

		rec := doRequest(h.Create, http.MethodPost, "/api/skills", map[string]string{"name": "React"}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = doRequest(h.Create, http.MethodPost, "/api/skills", map[string]string{"name": "react"}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete detaches the skill everywhere", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewSkillHandler(testConfig(), db)

		skill := &models.Skill{Name: "React"}
		require.NoError(t, db.CreateSkill(skill))
		ada := seedMember(t, db, "ada", skill.ID)

		rec := doRequest(h.Delete, http.MethodDelete, "/api/skills/"+skill.ID, nil, map[string]string{"id": skill.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		got, err := db.GetProfileByID(ada.ID)
		require.NoError(t, err)
		assert.Empty(t, got.SkillIDs)
	})
}

func TestClientsList(t *testing.T) {
	db := database.NewMemoryDatabase()
	h := NewClientHandler(testConfig(), db)

	require.NoError(t, db.CreateClient(&models.Client{Name: "Dana", Company: "Acme"}))
	require.NoError(t, db.CreateClient(&models.Client{Name: "Ben", Company: "Globex"}))

	rec := doRequest(h.List, http.MethodGet, "/api/clients", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var clients []models.Client
	decodeData(t, rec, &clients)
	require.Len(t, clients, 2)
	assert.Equal(t, "Ben", clients[0].Name)
	assert.Equal(t, "Dana", clients[1].Name)
}
