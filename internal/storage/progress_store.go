package storage

import "context"

// WatchProgress is the last trade the watcher handled.
type WatchProgress struct {
	Slot      uint64
	Signature string
}

// ProgressStore persists watcher state across restarts.
type ProgressStore interface {
	// GetLastProcessed returns ErrNotFound if no progress has been saved yet.
	GetLastProcessed(ctx context.Context) (*WatchProgress, error)

	// SetLastProcessed overwrites the saved progress.
	SetLastProcessed(ctx context.Context, progress *WatchProgress) error

	// IsMintExited reports whether a sell of mint has already succeeded.
	IsMintExited(ctx context.Context, mint string) (bool, error)

	// MarkMintExited records a successful sell of mint.
	MarkMintExited(ctx context.Context, mint string) error

	// LoadExitedMints returns all exited mints (for warming the in-memory set).
	LoadExitedMints(ctx context.Context) ([]string, error)
}
