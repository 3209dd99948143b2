package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGathersUpdatedCounters(t *testing.T) {
	CommitsWalked.WithLabelValues("ok").Inc()
	FilesIndexed.WithLabelValues("added").Inc()
	QueryDuration.WithLabelValues("plain").Observe(0.01)
	ShortTokenCacheResults.WithLabelValues("hit").Inc()

	families, err := Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}

	assert.True(t, names["crep_index_commits_walked_total"])
	assert.True(t, names["crep_index_files_indexed_total"])
	assert.True(t, names["crep_search_query_duration_seconds"])
	assert.True(t, names["crep_search_short_token_cache_results_total"])
}
