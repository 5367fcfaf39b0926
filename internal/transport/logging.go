package transport

import "termspectrum/internal/log"

// LoggingTransport logs a summary of every frame at debug level.
type LoggingTransport struct {
	frames int
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("Transport: logging frames")
	return &LoggingTransport{}
}

// Send logs frame. It never fails.
func (lt *LoggingTransport) Send(frame Frame) error {
	lt.frames++
	if frame.Silent {
		log.Debugf("Frame %d: silent", lt.frames)
		return nil
	}
	peak := 0
	for _, l := range frame.Levels {
		peak = max(peak, l)
	}
	log.Debugf("Frame %d: %d columns, peak level %d", lt.frames, len(frame.Levels), peak)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: logged %d frames", lt.frames)
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
