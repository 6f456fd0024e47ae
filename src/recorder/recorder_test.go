package recorder

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgeq7-viz/src/models"
	"msgeq7-viz/src/source"
)

func TestRecordThenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")
	rec, err := Open(path)
	require.NoError(t, err)

	frames := []models.Frame{
		{Bands: [models.NumBands]float64{1, 2, 3, 4, 5, 6, 7}, BassThreshold: 8, TrebleThreshold: 9},
		{Bands: [models.NumBands]float64{10, 20, 30, 40, 50, 60, 70}, BassThreshold: 80.5, TrebleThreshold: 90.25},
	}
	for _, f := range frames {
		require.NoError(t, rec.Record(f))
	}
	assert.Equal(t, 2, rec.Frames())
	assert.Equal(t, path, rec.Path())
	require.NoError(t, rec.Close())

	r, err := source.OpenReplay(source.ReplayConfig{File: path})
	require.NoError(t, err)
	defer r.Close()

	line, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.00,2.00,3.00,4.00,5.00,6.00,7.00,8.00,9.00", line)
	line, err = r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.00,20.00,30.00,40.00,50.00,60.00,70.00,80.50,90.25", line)
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")
	for i := 0; i < 2; i++ {
		rec, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, rec.Record(models.Frame{}))
		require.NoError(t, rec.Close())
	}

	r, err := source.OpenReplay(source.ReplayConfig{File: path})
	require.NoError(t, err)
	defer r.Close()
	for i := 0; i < 2; i++ {
		_, err := r.ReadLine(context.Background())
		require.NoError(t, err)
	}
}

func TestOpenBadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "x.csv"))
	assert.Error(t, err)
}
