package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocurate/internal/models"
)

func TestPendingApprovals(t *testing.T) {
	env := newTestEnv(t, models.WorkflowConfig{})
	ctx := context.Background()

	empty, err := env.ctrl.PendingApprovals(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first := env.readyPhoto(t)
	pending, err := env.ctrl.Upload(ctx, testJPEG(t, 32, 32))
	require.NoError(t, err)
	approved := env.readyPhoto(t)
	last := env.readyPhoto(t)
	_, _, err = env.ctrl.Approve(ctx, ApproveInput{PhotoID: approved.ID, VariationID: env.variations(t, approved.ID)[0].ID})
	require.NoError(t, err)

	got, err := env.ctrl.PendingApprovals(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].Photo.ID)
	assert.Equal(t, last.ID, got[1].Photo.ID)
	for _, p := range got {
		assert.NotEqual(t, pending.ID, p.Photo.ID)
		assert.Equal(t, models.StatusVariationsReady, p.Photo.Status)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, intensities(p.Variations))
		for _, v := range p.Variations {
			assert.Equal(t, p.Photo.ID, v.PhotoID)
		}
	}
}

func TestPhotoDetail(t *testing.T) {
	env := newTestEnv(t, models.WorkflowConfig{})
	ctx := context.Background()
	photo := env.readyPhoto(t)

	detail, err := env.ctrl.Photo(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, photo.ID, detail.Photo.ID)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, intensities(detail.Variations))
	assert.Empty(t, detail.Approvals)
	assert.Empty(t, detail.Publications)

	_, err = env.ctrl.Photo(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
