package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"termspectrum/internal/capture"
)

type listClient struct {
	sinks []capture.SinkInfo
	err   error
}

func (c *listClient) ListSinks(context.Context) ([]capture.SinkInfo, error) { return c.sinks, c.err }
func (c *listClient) Events() <-chan capture.SinkEvent                      { return nil }
func (c *listClient) Err() error                                            { return nil }
func (c *listClient) Close() error                                          { return nil }
func (c *listClient) OpenStream(context.Context, string, capture.StreamSpec) (capture.Stream, error) {
	return nil, errors.New("not supported")
}

func TestListSinks(t *testing.T) {
	tests := []struct {
		name    string
		client  *listClient
		want    []string
		wantErr bool
	}{
		{
			name: "marks the followed sink",
			client: &listClient{sinks: []capture.SinkInfo{
				{Index: 1, Name: "hdmi", MonitorSource: "hdmi.monitor"},
				{Index: 7, Name: "speakers", MonitorSource: "speakers.monitor", Running: true},
			}},
			want: []string{"  [1] hdmi (idle)", "* [7] speakers (running)", "monitor: speakers.monitor"},
		},
		{
			name:   "no sinks",
			client: &listClient{},
			want:   []string{"No audio sinks found."},
		},
		{
			name:    "client error",
			client:  &listClient{err: capture.ErrClientClosed},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := listSinks(tt.client, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("listSinks() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}
