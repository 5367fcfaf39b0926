// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"math"

	"termspectrum/internal/log"
	"termspectrum/internal/transport"
)

/*
Packet layout, big endian:

	|<- 4 bytes ->|<-- 8 bytes -->|<- 2 bytes ->|<-- N bytes -->|
	+-------------+---------------+-------------+---------------+
	|  Sequence   |   Timestamp   |    Count    |    Levels     |
	|  (uint32)   | (int64, ns)   |  (uint16)   |  (N * uint8)  |
	+-------------+---------------+-------------+---------------+

Levels are the quantized column levels of the frame. A silent frame
carries no levels.
*/
const headerSize = 4 + 8 + 2

// Publisher packs frames into level packets and sends them.
type Publisher struct {
	sender      *Sender
	sequenceNum uint32
	packet      *bytes.Buffer
}

// NewPublisher dials target.
func NewPublisher(target string) (*Publisher, error) {
	sender, err := NewSender(target)
	if err != nil {
		return nil, err
	}
	return &Publisher{sender: sender, packet: new(bytes.Buffer)}, nil
}

// Send implements transport.Transport.
func (p *Publisher) Send(frame transport.Frame) error {
	p.sequenceNum++
	p.encode(frame)

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		log.Debugf("UDP: packet %d: %v", p.sequenceNum, err)
		return err
	}
	return nil
}

func (p *Publisher) encode(frame transport.Frame) {
	levels := frame.Levels
	if frame.Silent {
		levels = nil
	}
	n := min(len(levels), math.MaxUint16)

	p.packet.Reset()
	p.packet.Grow(headerSize + n)

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:], p.sequenceNum)
	binary.BigEndian.PutUint64(header[4:], uint64(frame.Time.UnixNano()))
	binary.BigEndian.PutUint16(header[12:], uint16(n))
	p.packet.Write(header[:])

	for _, l := range levels[:n] {
		p.packet.WriteByte(uint8(max(0, min(l, math.MaxUint8))))
	}
}

// Close implements transport.Transport.
func (p *Publisher) Close() error { return p.sender.Close() }

var _ transport.Transport = (*Publisher)(nil)
