package config

import "time"

const (
	DefaultTimeZone = "UTC"

	// HeaderScanDepth bounds the candidate header rows the period detector
	// inspects (rows 1..HeaderScanDepth; row 0 is assumed to be a
	// sheet-level label).
	HeaderScanDepth = 3

	// PeriodScanWindow bounds how many data rows a candidate period column
	// is sampled for non-zero figures before being accepted or discarded.
	PeriodScanWindow = 50

	// AISampleRows is how many raw rows get sent to the AI structure
	// service per analysis request.
	AISampleRows = 30

	// MaxUploadBytes caps multipart statement uploads.
	MaxUploadBytes = 25 << 20

	// Mapping sessions are in-memory and single-writer; idle ones are
	// reaped on a schedule.
	DefaultSessionTTL             = 4 * time.Hour
	DefaultSessionCleanupSchedule = "*/10 * * * *"

	// SaveBatchSize bounds one CopyFrom batch when persisting finalized
	// account nodes.
	SaveBatchSize = 1000
)
