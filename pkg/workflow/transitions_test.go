package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/models"
)

func TestCanTransition(t *testing.T) {
	t.Run("assigned cannot go back to new", func(t *testing.T) {
		assert.False(t, CanTransition(models.StatusAssigned, models.StatusNew))
	})

	t.Run("same status is not a transition", func(t *testing.T) {
		assert.False(t, CanTransition(models.StatusNew, models.StatusNew))
		assert.False(t, CanTransition(models.StatusDone, models.StatusDone))
	})

	t.Run("everything else is allowed", func(t *testing.T) {
		allowed := [][2]models.OpportunityStatus{
			{models.StatusNew, models.StatusAssigned},
			{models.StatusNew, models.StatusCancelled},
			{models.StatusAssigned, models.StatusDone},
			{models.StatusAssigned, models.StatusCancelled},
			{models.StatusDone, models.StatusArchived},
			// reopening terminal and done cards is allowed
			{models.StatusDone, models.StatusAssigned},
			{models.StatusCancelled, models.StatusNew},
			{models.StatusArchived, models.StatusAssigned},
		}
		for _, pair := range allowed {
			assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
		}
	})
}

func TestValidateTransition(t *testing.T) {
	t.Run("rejects unknown status", func(t *testing.T) {
		err := ValidateTransition(models.StatusNew, models.OpportunityStatus("open"), false)
		require.Error(t, err)
		var terr *TransitionError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, models.OpportunityStatus("open"), terr.To)
	})

	t.Run("rejects assigned to new", func(t *testing.T) {
		err := ValidateTransition(models.StatusAssigned, models.StatusNew, true)
		require.Error(t, err)
	})

	t.Run("assigned column requires an assignee", func(t *testing.T) {
		err := ValidateTransition(models.StatusNew, models.StatusAssigned, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "assignee")

		err = ValidateTransition(models.StatusNew, models.StatusAssigned, true)
		require.NoError(t, err)
	})

	t.Run("done needs no assignee precondition", func(t *testing.T) {
		require.NoError(t, ValidateTransition(models.StatusAssigned, models.StatusDone, true))
		require.NoError(t, ValidateTransition(models.StatusNew, models.StatusCancelled, false))
	})
}
