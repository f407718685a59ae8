package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/simdash/internal/model"
	"github.com/verte-zerg/simdash/internal/pipeline"
)

func loadedStore(t *testing.T) *Store {
	t.Helper()
	columns := []string{model.ColDate, model.ColTotalTime, model.ColAverageSpeed, model.ColTrackMaterial}
	sessions := pipeline.Normalize([]model.RawTable{{
		Name:    "log.csv",
		Columns: columns,
		Rows: []map[string]model.Value{
			{
				model.ColDate:          model.StringValue("2024-01-01"),
				model.ColTotalTime:     model.StringValue("1:30"),
				model.ColAverageSpeed:  model.NumberValue(80.5),
				model.ColTrackMaterial: model.StringValue("Asphalt"),
			},
			{
				model.ColDate:          model.StringValue("2024-01-02"),
				model.ColTotalTime:     model.StringValue("bogus"),
				model.ColTrackMaterial: model.StringValue(`Wet "Gravel"`),
			},
		},
	}})

	st, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Load(context.Background(), pipeline.MergedColumns(sessions), sessions))
	return st
}

func TestLoadAndQuery(t *testing.T) {
	st := loadedStore(t)
	res, err := st.Query(context.Background(),
		`SELECT "Setting Track Material", "Average Speed (km/h)", duration_seconds FROM sessions ORDER BY rowid`)
	require.NoError(t, err)
	assert.Equal(t, []string{model.ColTrackMaterial, model.ColAverageSpeed, ColDurationSeconds}, res.Columns)
	assert.Equal(t, [][]string{
		{"Asphalt", "80.5", "90"},
		{`Wet "Gravel"`, "", ""},
	}, res.Rows)
}

func TestNumericColumnsAreReal(t *testing.T) {
	st := loadedStore(t)
	res, err := st.Query(context.Background(), "SELECT SUM(duration_seconds) / 60 FROM sessions WHERE parsed_date IS NOT NULL")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1.5"}}, res.Rows)

	res, err = st.Query(context.Background(), `SELECT typeof("Average Speed (km/h)"), typeof("Total Time") FROM sessions ORDER BY rowid LIMIT 1`)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"real", "text"}}, res.Rows)
}

func TestLoadReplacesTable(t *testing.T) {
	st := loadedStore(t)
	require.NoError(t, st.Load(context.Background(), []string{"Laps"}, nil))
	res, err := st.Query(context.Background(), "SELECT COUNT(*) FROM sessions")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"0"}}, res.Rows)
}

func TestQueryErrors(t *testing.T) {
	st := loadedStore(t)
	_, err := st.Query(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = st.Query(context.Background(), "SELECT nope FROM sessions")
	assert.Error(t, err)
}
