// Package transport publishes rendered frames to external consumers.
package transport

import "time"

// Frame is one rendered spectrum line.
type Frame struct {
	Line   string    `json:"line"`
	Silent bool      `json:"silent"`
	Levels []int     `json:"levels,omitempty"`
	Time   time.Time `json:"time"`
}

// Transport sends frames somewhere. Send is called from the capture loop
// and must not block; implementations drop frames they cannot keep up with.
type Transport interface {
	Send(frame Frame) error
	Close() error
}
