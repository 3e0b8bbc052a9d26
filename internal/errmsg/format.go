// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Pipeline operations
	OpStageSave    Op = "save pipeline stage"
	OpStageDelete  Op = "delete pipeline stage"
	OpStageResolve Op = "resolve pipeline order"

	// Movement operations
	OpMovementOpen    Op = "add album to pipeline"
	OpMovementAdvance Op = "move album"
	OpMovementHistory Op = "load album history"

	// Track cache operations
	OpTrackLove      Op = "update loved track"
	OpTrackPlaycount Op = "update play count"
	OpTrackReconcile Op = "reconcile tracks"
	OpSyncSweep      Op = "retry pending syncs"

	// Provider operations
	OpProviderAlbums  Op = "fetch albums"
	OpProviderTracks  Op = "fetch album tracks"
	OpPlaylistCreate  Op = "create playlist"
	OpPlaylistRename  Op = "rename playlist"
	OpPlaylistDelete  Op = "delete playlist"
	OpPlaylistReplace Op = "replace playlist tracks"
	OpProviderRefresh Op = "refresh provider session"

	// Scrobble operations
	OpScrobbleConnect Op = "connect to Last.fm"
	OpScrobbleRecord  Op = "record play"

	// Initialization
	OpInitialize Op = "initialize application"
	OpStoreOpen  Op = "open state database"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
