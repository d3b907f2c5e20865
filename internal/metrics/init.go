package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "not_found", "malformed", "error"} {
		MetadataLoadsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"purchase", "converted", "fallback"} {
		DownloadsTotal.WithLabelValues(outcome)
		DownloadDuration.WithLabelValues(outcome)
	}

	for _, stage := range []string{"fetch", "decode", "encode", "save", "link", "open"} {
		DownloadFailuresTotal.WithLabelValues(stage)
	}

	for _, engine := range []string{"imaging", "vips"} {
		TranscodeDuration.WithLabelValues(engine)
		for _, format := range []string{"png", "tiff", "bmp"} {
			TranscodesTotal.WithLabelValues(engine, format, "success")
			TranscodesTotal.WithLabelValues(engine, format, "error")
		}
	}

	for _, state := range []string{"pending", "in_view", "loaded", "errored"} {
		LoaderTransitionsTotal.WithLabelValues(state)
	}

	for _, op := range []string{"record_event", "event_counts", "initialize_schema"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}
}
