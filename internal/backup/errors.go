package backup

import "errors"

// Errors surfaced by the backup lifecycle. Handlers map these onto HTTP
// responses; everything else bubbles up as an internal error.
var (
	// ErrNotFound means no live backup record matches the given uuid.
	ErrNotFound = errors.New("backup not found")

	// ErrConflict means an exclusive operation already holds the server.
	ErrConflict = errors.New("another operation is in progress on this server")

	// ErrNotRestorable means the backup is still pending and cannot be
	// used as a restore source yet.
	ErrNotRestorable = errors.New("backup has not completed and cannot be restored")

	// ErrInvalidAdapter means the operation only applies to off-box
	// storage, for example requesting a download link on a local backup.
	ErrInvalidAdapter = errors.New("backup adapter does not support this operation")

	// ErrTooManyBackups means the server reached its backup limit.
	ErrTooManyBackups = errors.New("server backup limit reached")

	// ErrAlreadyCompleted means a completion callback arrived for a
	// backup that already left the pending state.
	ErrAlreadyCompleted = errors.New("backup already marked completed")

	// ErrStorage wraps object storage failures other than not-found.
	ErrStorage = errors.New("object storage operation failed")
)
