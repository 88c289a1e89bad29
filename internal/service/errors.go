package service

import "errors"

var (
	// ErrInvalidDeviceType is returned when a registration names a device
	// type outside the supported set
	ErrInvalidDeviceType = errors.New("invalid device type")

	// ErrInvalidTarget is returned for a malformed target specification:
	// unknown target type, unparseable user ids, a USER target with more
	// than one id, or a ROLE target without exactly one known role
	ErrInvalidTarget = errors.New("invalid target specification")
)
