package workflow

import (
	"context"
	"fmt"
	"sort"

	"photocurate/internal/models"
)

type PendingApproval struct {
	Photo      models.Photo       `json:"photo"`
	Variations []models.Variation `json:"variations"`
}

// PendingApprovals lists photos waiting for a reviewer, oldest first, each
// with its variations ordered by intensity.
func (c *Controller) PendingApprovals(ctx context.Context) ([]PendingApproval, error) {
	const op = "workflow.PendingApprovals"

	photos, err := c.store.Photos.List(ctx, func(p models.Photo) bool {
		return p.Status == models.StatusVariationsReady
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(photos) == 0 {
		return []PendingApproval{}, nil
	}

	wanted := make(map[string]struct{}, len(photos))
	for _, p := range photos {
		wanted[p.ID] = struct{}{}
	}
	vars, err := c.store.Variations.List(ctx, func(v models.Variation) bool {
		_, ok := wanted[v.PhotoID]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byPhoto := make(map[string][]models.Variation, len(photos))
	for _, v := range vars {
		byPhoto[v.PhotoID] = append(byPhoto[v.PhotoID], v)
	}

	out := make([]PendingApproval, 0, len(photos))
	for _, p := range photos {
		pv := byPhoto[p.ID]
		sortByIntensity(pv)
		if pv == nil {
			pv = []models.Variation{}
		}
		out = append(out, PendingApproval{Photo: p, Variations: pv})
	}
	return out, nil
}

type PhotoDetail struct {
	Photo        models.Photo         `json:"photo"`
	Variations   []models.Variation   `json:"variations"`
	Approvals    []models.Approval    `json:"approvals"`
	Publications []models.Publication `json:"publications"`
}

// Photo returns everything recorded about one photo.
func (c *Controller) Photo(ctx context.Context, photoID string) (PhotoDetail, error) {
	const op = "workflow.Photo"

	photo, err := c.photo(ctx, op, photoID)
	if err != nil {
		return PhotoDetail{}, err
	}
	vars, err := c.variations(ctx, photo.ID)
	if err != nil {
		return PhotoDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	sortByIntensity(vars)

	approvals, err := c.store.Approvals.List(ctx, func(a models.Approval) bool { return a.PhotoID == photo.ID })
	if err != nil {
		return PhotoDetail{}, fmt.Errorf("%s: %w", op, err)
	}
	pubs, err := c.store.Publications.List(ctx, func(p models.Publication) bool { return p.PhotoID == photo.ID })
	if err != nil {
		return PhotoDetail{}, fmt.Errorf("%s: %w", op, err)
	}

	return PhotoDetail{Photo: photo, Variations: vars, Approvals: approvals, Publications: pubs}, nil
}

func sortByIntensity(vars []models.Variation) {
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].Intensity < vars[j].Intensity })
}
