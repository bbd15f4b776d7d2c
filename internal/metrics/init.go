package metrics

// Reconcile classification labels.
const (
	CaseInserted  = "inserted"
	CaseEvicted   = "evicted"
	CaseTimestamp = "timestamp"
	CaseMoved     = "moved"
	CaseDuplicate = "duplicate"
	CaseBackfill  = "backfill"
	CaseUnchanged = "unchanged"
	CaseSkipped   = "skipped"
)

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"success", "error"} {
		ReconcileRunsTotal.WithLabelValues(outcome)
	}

	for _, c := range []string{CaseInserted, CaseEvicted, CaseTimestamp, CaseMoved,
		CaseDuplicate, CaseBackfill, CaseUnchanged, CaseSkipped} {
		ReconcileClassifications.WithLabelValues(c)
	}

	for _, d := range []string{"ran", "cooldown", "busy"} {
		CoordinatorDecisionsTotal.WithLabelValues(d)
	}

	for _, r := range []string{"found", "absent", "error"} {
		MetadataExtractionsTotal.WithLabelValues(r)
	}

	volumes := []string{"images", "cache", "database", "unknown"}
	for _, op := range []string{"stat", "open"} {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, status := range []string{"success", "cached", "error", "unsupported"} {
		ThumbnailGenerationsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error", "rejected"} {
		UploadsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"initialize_schema", "list_entry_states", "lookup_by_hash",
		"lookup_by_path", "insert_entry", "update_path", "update_timestamp", "set_prompt",
		"set_metadata_version", "delete_entry", "delete_metadata",
		"replace_metadata", "rebuild_search_row", "list_entries", "filter_by_metadata",
		"search_full_text", "get_entry", "calculate_stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, t := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(t)
	}

	for _, f := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(f)
	}
}
