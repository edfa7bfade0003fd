package timer

// error definitions
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrInvalidConfig = Error("invalid timer configuration")
	ErrNotConfigured = Error("timer not configured")
	ErrClosed        = Error("timer closed")
)
