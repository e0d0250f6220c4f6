package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"
)

func TestTeamCreate(t *testing.T) {
	t.Run("creates a member with skills", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewTeamHandler(testConfig(), db)

		skill := &models.Skill{Name: "React"}
		require.NoError(t, db.CreateSkill(skill))

		rec := doRequest(h.Create, http.MethodPost, "/api/team", MemberRequest{
			Name:     "Ada",
			Email:    "Ada@Example.com",
			Role:     "engineer",
			SkillIDs: []string{skill.ID},
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		var created models.Profile
		decodeData(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "ada@example.com", created.Email)
		assert.Equal(t, []string{skill.ID}, created.SkillIDs)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewTeamHandler(testConfig(), db)
		seedMember(t, db, "ada")

		rec := doRequest(h.Create, http.MethodPost, "/api/team", MemberRequest{
			Name:  "Other",
			Email: "ada@example.com",
		}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects missing name or bad email", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewTeamHandler(testConfig(), db)

		rec := doRequest(h.Create, http.MethodPost, "/api/team", MemberRequest{Email: "x@example.com"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(h.Create, http.MethodPost, "/api/team", MemberRequest{Name: "Ada", Email: "not-an-email"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTeamList(t *testing.T) {
	db := database.NewMemoryDatabase()
	h := NewTeamHandler(testConfig(), db)

	ada := seedMember(t, db, "ada")
	seedMember(t, db, "bea")

	seedOpportunity(t, db, models.StatusAssigned, &ada.ID)
	seedOpportunity(t, db, models.StatusDone, &ada.ID)
	seedOpportunity(t, db, models.StatusDone, &ada.ID)

	rec := doRequest(h.List, http.MethodGet, "/api/team", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var roster []models.ProfileWithStats
	decodeData(t, rec, &roster)
	require.Len(t, roster, 2)

	// 按姓名排序，统计实时计算
	assert.Equal(t, "ada", roster[0].Name)
	assert.Equal(t, 1, roster[0].ActiveCount)
	assert.Equal(t, 2, roster[0].CompletedCount)

	assert.Equal(t, "bea", roster[1].Name)
	assert.Equal(t, 0, roster[1].ActiveCount)
	assert.Equal(t, 0, roster[1].CompletedCount)
}

func TestTeamUpdate(t *testing.T) {
	t.Run("updates fields and skill set", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewTeamHandler(testConfig(), db)
		ada := seedMember(t, db, "ada")

		skill := &models.Skill{Name: "DevOps"}
		require.NoError(t, db.CreateSkill(skill))

		rec := doRequest(h.Update, http.MethodPut, "/api/team/"+ada.ID, MemberRequest{
			Name:     "Ada L",
			Role:     "lead",
			SkillIDs: []string{skill.ID},
		}, map[string]string{"id": ada.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		var updated models.Profile
		decodeData(t, rec, &updated)
		assert.Equal(t, "Ada L", updated.Name)
		assert.Equal(t, "lead", updated.Role)
		assert.Equal(t, []string{skill.ID}, updated.SkillIDs)
	})

	t.Run("rejects taking another member's email", func(t *testing.T) {
		db := database.NewMemoryDatabase()
		h := NewTeamHandler(testConfig(), db)
		ada := seedMember(t, db, "ada")
		seedMember(t, db, "bea")

		rec := doRequest(h.Update, http.MethodPut, "/api/team/"+ada.ID, MemberRequest{
			Email: "bea@example.com",
		}, map[string]string{"id": ada.ID})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTeamDelete(t *testing.T) {
	db := database.NewMemoryDatabase()
	h := NewTeamHandler(testConfig(), db)
	ada := seedMember(t, db, "ada")
	o := seedOpportunity(t, db, models.StatusAssigned, &ada.ID)

	rec := doRequest(h.Delete, http.MethodDelete, "/api/team/"+ada.ID, nil, map[string]string{"id": ada.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	// 成员没了，机会还在且退回未指派
	got, err := db.GetOpportunity(o.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssigneeID)

	rec = doRequest(h.Get, http.MethodGet, "/api/team/"+ada.ID, nil, map[string]string{"id": ada.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
