package telemetry

import (
	"bufio"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/MathBorgess/automation-engineering/internal/plant"
)

// SerialChannel talks to the rig firmware over a serial port.
type SerialChannel struct {
	port   serial.Port
	reader *bufio.Reader
	log    *zap.Logger
}

// OpenSerial connects to the firmware. The firmware resets when the
// port opens, so the caller should allow a couple of seconds before
// the first exchange.
func OpenSerial(portName string, baud int, log *zap.Logger) (*SerialChannel, error) {
	if log == nil {
		log = zap.NewNop()
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", portName, err)
	}
	log.Info("serial port open", zap.String("port", portName), zap.Int("baud", baud))
	return &SerialChannel{port: port, reader: bufio.NewReader(port), log: log}, nil
}

func (c *SerialChannel) SendFan(command float64) error {
	if _, err := c.port.Write([]byte(FormatFan(command))); err != nil {
		return fmt.Errorf("telemetry: send fan command: %w", err)
	}
	return nil
}

// ReadDistance blocks for at most timeout waiting for one sensor line
// and validates it. An empty read after the timeout maps to
// ErrTelemetryTimeout so callers can treat it as a missed sample.
func (c *SerialChannel) ReadDistance(timeout time.Duration) (float64, error) {
	if err := c.port.SetReadTimeout(timeout); err != nil {
		return 0, fmt.Errorf("telemetry: set read timeout: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil && line == "" {
		return 0, plant.ErrTelemetryTimeout
	}

	d, perr := ParseDistance(line)
	if perr != nil {
		c.log.Debug("discarding telemetry line", zap.String("line", line), zap.Error(perr))
		return 0, perr
	}
	return d, nil
}

func (c *SerialChannel) Close() error {
	return c.port.Close()
}
