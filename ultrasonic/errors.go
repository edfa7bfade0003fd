package ultrasonic

// error definitions
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrStale          = Error("no fresh echo before timeout")
	ErrNotInitialized = Error("sensor not initialized")
)
