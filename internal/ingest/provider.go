package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	MetricsReceived int      `json:"metrics_received"`
	MetricsInserted int64    `json:"metrics_inserted"`
	MetricsRejected int      `json:"metrics_rejected"`
	RejectedNames   []string `json:"rejected_names,omitempty"`

	SleepEntriesReceived int   `json:"sleep_entries_received,omitempty"`
	SleepEntriesInserted int64 `json:"sleep_entries_inserted,omitempty"`

	Message string `json:"message,omitempty"`
}
