package sanctum

import "log"

// Logger is the subset of *log.Logger the client writes diagnostics to.
type Logger interface {
	Printf(format string, v ...any)
}

// stdLogger forwards to the standard library's default logger.
type stdLogger struct{}

func (stdLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}
