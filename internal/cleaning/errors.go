package cleaning

import "errors"

var (
	ErrNotQueued                    = errors.New("cleaning item is not queued")
	ErrNotInProgress                = errors.New("cleaning item is not in progress")
	ErrInvalidMaintenanceTransition = errors.New("invalid maintenance status transition")
	ErrMaintenanceOpen              = errors.New("maintenance item is not resolved")
	ErrContainerMismatch            = errors.New("item belongs to a different container")
)
