package baseline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/sst-server/internal/database"
)

type fakeStore struct {
	monthlies []database.MonthlyAggregate
	saved     []database.ClimateBaseline
}

func (f *fakeStore) MonthlyAggregatesForYears(_ context.Context, startYear, endYear int, _ string) ([]database.MonthlyAggregate, error) {
	var out []database.MonthlyAggregate
	for _, m := range f.monthlies {
		if m.Year >= startYear && m.Year <= endYear {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertClimateBaselines(_ context.Context, baselines []database.ClimateBaseline) (int, error) {
	f.saved = baselines
	return len(baselines), nil
}

func monthly(year, month int, latBin, lonBin, avg float64) database.MonthlyAggregate {
	return database.MonthlyAggregate{
		Year: year, Month: month, LatBin: latBin, LonBin: lonBin,
		AvgSSTC: avg, MinSSTC: avg - 1, MaxSSTC: avg + 1, Count: 30,
		Dataset: "ERSST",
	}
}

func TestMinYears(t *testing.T) {
	assert.Equal(t, 21, MinYears(30), "30-year period needs 21 years")
	assert.Equal(t, 2, MinYears(2))
	assert.Equal(t, 3, MinYears(4))
	assert.Equal(t, 1, MinYears(1))
	assert.Equal(t, 7, MinYears(10))
}

func TestBuildComputesClimatology(t *testing.T) {
	store := &fakeStore{monthlies: []database.MonthlyAggregate{
		monthly(2019, 6, 10, 20, 18),
		monthly(2020, 6, 10, 20, 20),
		monthly(2019, 7, 10, 20, 21),
		monthly(2020, 7, 10, 20, 23),
	}}

	calc := NewCalculator(store, 2.0)
	written, err := calc.Build(context.Background(), 2019, 2020, "ERSST")
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, store.saved, 2)

	june := store.saved[0]
	assert.Equal(t, 6, june.Month)
	assert.Equal(t, 10.0, june.LatBin)
	assert.Equal(t, 20.0, june.LonBin)
	assert.Equal(t, 19.0, june.ClimatologySSTC)
	assert.Equal(t, 1.0, june.StdSSTC)
	assert.Equal(t, 2019, june.PeriodStart)
	assert.Equal(t, 2020, june.PeriodEnd)

	july := store.saved[1]
	assert.Equal(t, 7, july.Month)
	assert.Equal(t, 22.0, july.ClimatologySSTC)
}

func TestBuildEnforcesCoverageFloor(t *testing.T) {
	// 2010-2019 is ten years, so the floor is seven. One cell-month has
	// seven years of data, the other six.
	var monthlies []database.MonthlyAggregate
	for year := 2010; year <= 2016; year++ {
		monthlies = append(monthlies, monthly(year, 1, 10, 20, 15))
	}
	for year := 2010; year <= 2015; year++ {
		monthlies = append(monthlies, monthly(year, 2, 10, 20, 15))
	}
	store := &fakeStore{monthlies: monthlies}

	calc := NewCalculator(store, 2.0)
	written, err := calc.Build(context.Background(), 2010, 2019, "ERSST")
	require.NoError(t, err)
	assert.Equal(t, 1, written, "only the cell-month at the floor survives")
	require.Len(t, store.saved, 1)
	assert.Equal(t, 1, store.saved[0].Month)
}

func TestBuildCountsDistinctYears(t *testing.T) {
	// Two fine cells merge into one coarse cell. The same two years
	// contribute four records, which must still count as two years.
	store := &fakeStore{monthlies: []database.MonthlyAggregate{
		monthly(2019, 6, 10, 20, 18),
		monthly(2019, 6, 11, 21, 19),
		monthly(2020, 6, 10, 20, 20),
		monthly(2020, 6, 11, 21, 21),
	}}

	calc := NewCalculator(store, 4.0)
	written, err := calc.Build(context.Background(), 2018, 2020, "ERSST")
	require.NoError(t, err)
	assert.Zero(t, written, "two distinct years is below ceil(0.7*3)=3")
	assert.Empty(t, store.saved)
}

func TestBuildValidation(t *testing.T) {
	calc := NewCalculator(&fakeStore{}, 2.0)

	_, err := calc.Build(context.Background(), 2020, 2019, "ERSST")
	assert.Error(t, err, "start year after end year")

	_, err = calc.Build(context.Background(), 0, 2019, "ERSST")
	assert.Error(t, err)

	bad := NewCalculator(&fakeStore{}, 0)
	_, err = bad.Build(context.Background(), 2010, 2019, "ERSST")
	assert.Error(t, err)
}
