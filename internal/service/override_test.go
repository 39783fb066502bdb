package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-frontdesk/internal/apperr"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

func intp(v int) *int { return &v }

func TestOverridePutChangesAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := &OverrideService{Store: f.store.Overrides()}

	_, err := svc.Put(ctx, model.DayOverride{Date: "2026-03-03", OpenMinute: intp(minutes(18, 0)), CloseMinute: intp(minutes(20, 0))})
	require.NoError(t, err)

	slots, err := f.avail.GetSlots(ctx, "2026-03-03", 2, 0)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, minutes(18, 0), slots[0].Time)

	got, err := svc.Get(ctx, "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, minutes(20, 0), *got.CloseMinute)

	require.NoError(t, svc.Delete(ctx, "2026-03-03"))
	_, err = svc.Get(ctx, "2026-03-03")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOverrideValidation(t *testing.T) {
	svc := &OverrideService{Store: newFixture(t).store.Overrides()}
	ctx := context.Background()
	cases := map[string]model.DayOverride{
		"bad date":        {Date: "03/03/2026"},
		"close before":    {Date: "2026-03-03", OpenMinute: intp(minutes(20, 0)), CloseMinute: intp(minutes(18, 0))},
		"out of range":    {Date: "2026-03-03", OpenMinute: intp(-5)},
		"negative covers": {Date: "2026-03-03", MaxCovers: intp(-1)},
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Put(ctx, o)
			var verr *apperr.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}
