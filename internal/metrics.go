package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var DescriptorCacheHits = promauto.NewCounter(prometheus.CounterOpts{
	Name: "draftforge_descriptor_cache_hits",
	Help: "The number of descriptor option lookups served from cache",
})

var DescriptorCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "draftforge_descriptor_cache_misses",
	Help: "The number of descriptor option lookups that required a fetch",
})

var DescriptorFetchesCoalesced = promauto.NewCounter(prometheus.CounterOpts{
	Name: "draftforge_descriptor_fetches_coalesced",
	Help: "The number of descriptor option lookups that joined an in-flight fetch",
})

var AutosaveFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "draftforge_autosave_failures",
	Help: "The number of row saves that failed and were rolled back",
})

var AutosaveBatches = promauto.NewCounter(prometheus.CounterOpts{
	Name: "draftforge_autosave_batches",
	Help: "The number of debounce batches flushed",
})
