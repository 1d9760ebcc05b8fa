package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectDescs(c prometheus.Collector) []*prometheus.Desc {
	ch := make(chan *prometheus.Desc, 32)
	c.Describe(ch)
	close(ch)

	var descs []*prometheus.Desc
	for d := range ch {
		descs = append(descs, d)
	}
	return descs
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "farm-sales")
	require.NotNil(t, c)

	descs := collectDescs(c)
	assert.Len(t, descs, 8)

	joined := make([]string, 0, len(descs))
	for _, d := range descs {
		joined = append(joined, d.String())
	}
	all := strings.Join(joined, "\n")
	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_empty_acquire_count_total",
	} {
		assert.Contains(t, all, name)
	}
}

func TestRegisterPoolMetrics_DuplicateRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nil, "farm-sales"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "farm-sales"))
}
