package tracking

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not an edge of the lifecycle
	ErrInvalidTransition = errors.New("invalid container status transition")

	// ErrAlreadyParented is returned when a member already belongs to a case or pallet
	ErrAlreadyParented = errors.New("container already belongs to another container")

	// ErrUnknownType is returned for container types with no id prefix
	ErrUnknownType = errors.New("unknown container type")

	// ErrNoMembers is returned when a case or pallet is created with nothing in it
	ErrNoMembers = errors.New("aggregate container requires at least one member")

	// ErrNotAggregate is returned when children are attached to a keg, bottle or can
	ErrNotAggregate = errors.New("only cases and pallets can hold containers")
)
