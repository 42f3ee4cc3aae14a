package ports

// Port: job log. Finish writes the closing line and triggers log retention.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Finish(msg string) error
}
