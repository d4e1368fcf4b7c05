package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "listing",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Total number of imported rows broken down by result.",
	}, []string{"result"})

	importChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "listing",
		Subsystem: "import",
		Name:      "chunks_total",
		Help:      "Total number of import chunks broken down by commit result.",
	}, []string{"result"})

	upsertChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "listing",
		Subsystem: "upsert",
		Name:      "changes_total",
		Help:      "Total number of property upserts broken down by change type.",
	}, []string{"change"})

	communityMerges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "community",
		Subsystem: "merge",
		Name:      "requests_total",
		Help:      "Total number of community merge requests broken down by result.",
	}, []string{"result"})

	failedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "listing",
		Subsystem: "failed_records",
		Name:      "written_total",
		Help:      "Total number of failed records sent to the sink broken down by failure type.",
	}, []string{"failure_type"})
)

func recordImportRow(success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	importRows.WithLabelValues(result).Inc()
}

func recordImportChunk(committed bool) {
	result := "rolled_back"
	if committed {
		result = "committed"
	}
	importChunks.WithLabelValues(result).Inc()
}

func recordUpsertChange(change string) {
	if change == "" {
		change = "created"
	}
	upsertChanges.WithLabelValues(change).Inc()
}

func recordMerge(result string) {
	communityMerges.WithLabelValues(result).Inc()
}

func recordFailedRecord(failureType string) {
	failedRecords.WithLabelValues(failureType).Inc()
}
