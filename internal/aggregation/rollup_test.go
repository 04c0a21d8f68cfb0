package aggregation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/sst-server/internal/database"
)

// fakeStore serves canned lower-level records and captures upserts.
type fakeStore struct {
	observations []database.GridObservation
	dailies      []database.DailyAggregate
	monthlies    []database.MonthlyAggregate

	savedDaily   []database.DailyAggregate
	savedMonthly []database.MonthlyAggregate
	savedYearly  []database.YearlyAggregate
}

func (f *fakeStore) GridObservationsForDate(_ context.Context, _ time.Time, _ string) ([]database.GridObservation, error) {
	return f.observations, nil
}

func (f *fakeStore) UpsertDailyAggregates(_ context.Context, aggregates []database.DailyAggregate) (int, error) {
	f.savedDaily = aggregates
	return len(aggregates), nil
}

func (f *fakeStore) DailyAggregatesForMonth(_ context.Context, _, _ int, _ string) ([]database.DailyAggregate, error) {
	return f.dailies, nil
}

func (f *fakeStore) UpsertMonthlyAggregates(_ context.Context, aggregates []database.MonthlyAggregate) (int, error) {
	f.savedMonthly = aggregates
	return len(aggregates), nil
}

func (f *fakeStore) MonthlyAggregatesForYear(_ context.Context, _ int, _ string) ([]database.MonthlyAggregate, error) {
	return f.monthlies, nil
}

func (f *fakeStore) UpsertYearlyAggregates(_ context.Context, aggregates []database.YearlyAggregate) (int, error) {
	f.savedYearly = aggregates
	return len(aggregates), nil
}

func ptr(v float64) *float64 { return &v }

func obs(lat, lon float64, sst *float64) database.GridObservation {
	return database.GridObservation{
		Date: time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC),
		Lat:  lat, Lon: lon, SSTC: sst, Dataset: "OISST",
	}
}

func TestDailyAggregator(t *testing.T) {
	store := &fakeStore{observations: []database.GridObservation{
		obs(10.2, 20.3, ptr(18.0)),
		obs(10.4, 20.1, ptr(20.0)),
		obs(-5.5, 30.1, ptr(25.0)),
		obs(10.1, 20.2, nil),
	}}

	agg := NewDailyAggregator(store, 1.0)
	written, err := agg.Aggregate(context.Background(), time.Date(2020, 3, 15, 13, 45, 0, 0, time.UTC), "OISST")
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, store.savedDaily, 2)

	first := store.savedDaily[0]
	assert.Equal(t, -5.0, first.LatBin, "ties round half up")
	assert.Equal(t, 30.0, first.LonBin)
	assert.Equal(t, 25.0, first.AvgSSTC)
	assert.Equal(t, 0.0, first.StdSSTC)
	assert.Equal(t, 1, first.Count)

	second := store.savedDaily[1]
	assert.Equal(t, 10.0, second.LatBin)
	assert.Equal(t, 20.0, second.LonBin)
	assert.Equal(t, 19.0, second.AvgSSTC)
	assert.Equal(t, 18.0, second.MinSSTC)
	assert.Equal(t, 20.0, second.MaxSSTC)
	assert.Equal(t, 1.0, second.StdSSTC)
	assert.Equal(t, 2, second.Count)

	assert.Equal(t, time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC), second.Date,
		"aggregate date is normalized to midnight")
}

func TestDailyAggregatorOrderIndependent(t *testing.T) {
	observations := []database.GridObservation{
		obs(10.2, 20.3, ptr(18.0)),
		obs(10.4, 20.1, ptr(20.0)),
		obs(-5.5, 30.1, ptr(25.0)),
	}
	reversed := []database.GridObservation{observations[2], observations[1], observations[0]}

	a := &fakeStore{observations: observations}
	b := &fakeStore{observations: reversed}
	date := time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)

	_, err := NewDailyAggregator(a, 1.0).Aggregate(context.Background(), date, "OISST")
	require.NoError(t, err)
	_, err = NewDailyAggregator(b, 1.0).Aggregate(context.Background(), date, "OISST")
	require.NoError(t, err)

	assert.Equal(t, a.savedDaily, b.savedDaily, "input order must not change the result")
}

func TestDailyAggregatorRejectsBadResolution(t *testing.T) {
	agg := NewDailyAggregator(&fakeStore{}, 0)
	_, err := agg.Aggregate(context.Background(), time.Now(), "OISST")
	assert.Error(t, err)
}

func daily(latBin, lonBin, avg, min, max float64, count int, day int) database.DailyAggregate {
	return database.DailyAggregate{
		Date:   time.Date(2020, 3, day, 0, 0, 0, 0, time.UTC),
		LatBin: latBin, LonBin: lonBin,
		AvgSSTC: avg, MinSSTC: min, MaxSSTC: max, Count: count,
		Dataset: "OISST",
	}
}

func TestMonthlyAggregator(t *testing.T) {
	store := &fakeStore{dailies: []database.DailyAggregate{
		daily(10, 20, 18, 17, 19, 4, 1),
		daily(10, 20, 20, 16, 22, 6, 2),
		daily(11, 21, 30, 29, 31, 2, 3),
	}}

	agg := NewMonthlyAggregator(store, 2.0)
	written, err := agg.Aggregate(context.Background(), 2020, 3, "OISST")
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, store.savedMonthly, 2)

	coarse := store.savedMonthly[0]
	assert.Equal(t, 10.0, coarse.LatBin)
	assert.Equal(t, 20.0, coarse.LonBin)
	assert.Equal(t, 19.0, coarse.AvgSSTC, "mean of daily means")
	assert.Equal(t, 16.0, coarse.MinSSTC, "min of daily mins")
	assert.Equal(t, 22.0, coarse.MaxSSTC, "max of daily maxes")
	assert.Equal(t, 1.0, coarse.StdSSTC, "std of daily means")
	assert.Equal(t, 10, coarse.Count, "sum of daily counts")

	rebinned := store.savedMonthly[1]
	assert.Equal(t, 12.0, rebinned.LatBin, "cells re-bin at the coarser resolution")
	assert.Equal(t, 22.0, rebinned.LonBin)
	assert.Equal(t, 30.0, rebinned.AvgSSTC)
	assert.Equal(t, 2, rebinned.Count)
}

func TestMonthlyAggregatorValidation(t *testing.T) {
	agg := NewMonthlyAggregator(&fakeStore{}, 1.0)

	_, err := agg.Aggregate(context.Background(), 2020, 0, "OISST")
	assert.Error(t, err)
	_, err = agg.Aggregate(context.Background(), 2020, 13, "OISST")
	assert.Error(t, err)
	_, err = agg.Aggregate(context.Background(), 0, 6, "OISST")
	assert.Error(t, err)
}

func TestYearlyAggregator(t *testing.T) {
	monthly := func(month int, avg, min, max float64, count int) database.MonthlyAggregate {
		return database.MonthlyAggregate{
			Year: 2020, Month: month, LatBin: 10, LonBin: 20,
			AvgSSTC: avg, MinSSTC: min, MaxSSTC: max, Count: count,
			Dataset: "ERSST",
		}
	}
	store := &fakeStore{monthlies: []database.MonthlyAggregate{
		monthly(1, 10, 5, 12, 10),
		monthly(2, 20, 18, 26, 10),
		monthly(3, 30, 28, 35, 10),
	}}

	agg := NewYearlyAggregator(store, 2.0)
	written, err := agg.Aggregate(context.Background(), 2020, "ERSST")
	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.Len(t, store.savedYearly, 1)

	y := store.savedYearly[0]
	assert.Equal(t, 2020, y.Year)
	assert.Equal(t, 10.0, y.LatBin)
	assert.Equal(t, 20.0, y.LonBin)
	assert.Equal(t, 20.0, y.AvgSSTC)
	assert.Equal(t, 5.0, y.MinSSTC)
	assert.Equal(t, 35.0, y.MaxSSTC)
	assert.InDelta(t, 8.16496580927726, y.StdSSTC, 1e-9)
	assert.Equal(t, 30, y.Count)
}

func TestYearlyAggregatorEmptyInput(t *testing.T) {
	store := &fakeStore{}
	agg := NewYearlyAggregator(store, 2.0)
	written, err := agg.Aggregate(context.Background(), 2020, "ERSST")
	require.NoError(t, err)
	assert.Zero(t, written, "no input means nothing written, not an error")
}
