package constants

import "time"

const (
	DefaultTimeout        = 10 * time.Second
	DefaultRequestTimeout = 15 * time.Second

	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes

	// How far ahead one reconciliation pass looks. Task fan-out stays bounded
	// because nothing outside this window is ever scheduled in a single tick.
	SyncWindow = 24 * time.Hour

	// Safety guard on the scheduler, not a hard product rule. Events further
	// out are picked up by a later tick once they fall inside the horizon.
	MaxScheduleDelay = 365 * 24 * time.Hour

	// Per-account budget for one reconciliation pass, covering the calendar
	// fetch and all scheduler/store calls for that account.
	SyncAccountTimeout = 60 * time.Second

	SyncWorkers = 8

	TaskSetAway    = "presence:set_away"
	TaskQueue      = "presence"
	TopicAfk       = "Afk"
	ProviderGoogle = "google"

	MinAwayDuration    = time.Minute
	MaxAwayDuration    = 30 * 24 * time.Hour
	MaxAwayTextLength  = 200
	MaxAwayRecordBytes = 512
)

// Attachment extensions accepted for away-record images.
var ValidAttachmentExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}
