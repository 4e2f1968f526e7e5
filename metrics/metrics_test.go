package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, Register)
	assert.NotPanics(t, Register)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	GenerationExhaustedTotal.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(GenerationExhaustedTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(GenerationExhaustedTotal))
	assert.True(t, names["butler_generation_exhausted_total"])
}
