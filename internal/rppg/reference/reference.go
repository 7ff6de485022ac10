// Package reference reads a contact pulse oximeter over a serial line and
// compares its readings against the camera estimates. The device speaks a
// one-line-per-sample protocol:
//
//	BPM=72,SPO2=98\r\n
//
// Unknown fields are ignored so firmware additions do not break older
// builds. Parse failures are counted, logged, and skipped; a flaky cable
// should never take the estimation loop down.
package reference

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/heartbeam-data/pulse.report/internal/monitoring"
)

// Reading is one parsed sample from the reference device.
type Reading struct {
	BPM  float64
	SpO2 *float64
	At   time.Time
}

func (r Reading) String() string {
	if r.SpO2 != nil {
		return fmt.Sprintf("%.0f bpm, SpO2 %.0f%%", r.BPM, *r.SpO2)
	}
	return fmt.Sprintf("%.0f bpm", r.BPM)
}

// ParseLine parses one device line. BPM is required; SpO2 and any other
// fields are optional.
func ParseLine(line string) (Reading, error) {
	var r Reading
	var haveBPM bool

	for _, field := range strings.Split(strings.TrimSpace(line), ",") {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "BPM":
			bpm, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return Reading{}, fmt.Errorf("bad BPM field %q: %w", value, err)
			}
			r.BPM = bpm
			haveBPM = true
		case "SPO2":
			spo2, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				return Reading{}, fmt.Errorf("bad SPO2 field %q: %w", value, err)
			}
			r.SpO2 = &spo2
		}
	}

	if !haveBPM {
		return Reading{}, fmt.Errorf("no BPM field in %q", line)
	}
	return r, nil
}

// PortInterface is the reference device seen by the rest of the app. Both
// the real serial port and the byte-fixture mock satisfy it.
type PortInterface interface {
	Events() <-chan Reading
	Monitor(ctx context.Context) error
	Close() error
}

// Port reads a pulse oximeter on a real serial device.
type Port struct {
	serial.Port
	events      chan Reading
	parseErrors atomic.Uint64
}

// NewPort opens the serial device at portName with the oximeter's 8N1
// framing. A non-positive baud falls back to the device default of 115200.
func NewPort(portName string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = 115200
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: 1,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open reference port %s: %w", portName, err)
	}

	return &Port{Port: port, events: make(chan Reading)}, nil
}

// Events returns the channel of parsed readings. It is closed when Monitor
// returns.
func (p *Port) Events() <-chan Reading {
	return p.events
}

// ParseErrors reports how many device lines failed to parse.
func (p *Port) ParseErrors() uint64 {
	return p.parseErrors.Load()
}

// Close closes the serial port.
func (p *Port) Close() error {
	return p.Port.Close()
}

// Monitor reads device lines until the context ends or the port fails,
// sending parsed readings to the events channel.
func (p *Port) Monitor(ctx context.Context) error {
	defer close(p.events)

	// Closing the port unblocks the scanner when the context ends; the
	// scanner itself has no cancellation hook.
	go func() {
		<-ctx.Done()
		p.Port.Close()
	}()

	err := scanReadings(ctx, p.Port, p.events, &p.parseErrors)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// MockPort replays byte fixtures through the same parse path as the real
// port. The events channel is closed when the fixture is exhausted.
type MockPort struct {
	Data        io.Reader
	EventsChan  chan Reading
	parseErrors atomic.Uint64
}

// NewMockPort creates a MockPort replaying the given bytes.
func NewMockPort(data []byte) *MockPort {
	return &MockPort{
		Data:       bytes.NewReader(data),
		EventsChan: make(chan Reading, 16),
	}
}

func (m *MockPort) Events() <-chan Reading {
	return m.EventsChan
}

func (m *MockPort) ParseErrors() uint64 {
	return m.parseErrors.Load()
}

func (m *MockPort) Close() error {
	return nil
}

// Monitor scans the fixture data and sends parsed readings.
func (m *MockPort) Monitor(ctx context.Context) error {
	defer close(m.EventsChan)

	err := scanReadings(ctx, m.Data, m.EventsChan, &m.parseErrors)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// scanReadings is the shared line loop: scan, parse, stamp, send.
func scanReadings(ctx context.Context, r io.Reader, events chan<- Reading, parseErrors *atomic.Uint64) error {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}

		reading, err := ParseLine(line)
		if err != nil {
			parseErrors.Add(1)
			monitoring.Logf("reference: skipping line: %v", err)
			continue
		}
		reading.At = time.Now()

		select {
		case events <- reading:
		case <-ctx.Done():
			return nil
		}
	}
	return scan.Err()
}
