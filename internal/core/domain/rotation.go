package domain

import "time"

// RotationState tracks the daily text-channel rotation. Mutated only by the
// rotation scheduler; read by the status API.
type RotationState struct {
	NextRotationAt time.Time
	LastRotationAt time.Time
	RotationCount  int
}
