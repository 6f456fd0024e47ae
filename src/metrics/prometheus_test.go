package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msgeq7-viz/src/models"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordFrame(models.Frame{Bands: [models.NumBands]float64{1, 2, 3, 4, 5, 6, 700}}, 12, 34)
	r.RecordFrame(models.Frame{}, 0, 0)
	r.RecordMalformed()
	r.RecordDeviceMessage()
	r.RecordError()
	r.RecordCommand("music", nil)
	r.RecordCommand("music", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.framesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.malformedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.deviceMsgTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.commandsTotal.WithLabelValues("music", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.bandLevel.WithLabelValues("6", "Treble")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.threshold.WithLabelValues("bass")))
}

func TestRecordersDoNotShareRegistry(t *testing.T) {
	a, b := New(), New()
	a.RecordMalformed()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.malformedTotal))

	n, err := testutil.GatherAndCount(a.Registry(), "msgeq7_malformed_lines_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
