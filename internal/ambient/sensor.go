package ambient

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Sensor produces one raw ambient-light reading per call.
type Sensor interface {
	Read() (float64, error)
}

// StaticSensor always reports the same reading. It stands in for boards
// without a light sensor.
type StaticSensor float64

// Read implements Sensor.
func (s StaticSensor) Read() (float64, error) {
	return float64(s), nil
}

// FileSensor reads a numeric value from a file on every call, e.g. an IIO
// channel such as /sys/bus/iio/devices/iio:device0/in_illuminance_raw.
type FileSensor struct {
	Path string
}

// Read implements Sensor.
func (s FileSensor) Read() (float64, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to read light sensor: %w", err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse light sensor reading %q: %w", strings.TrimSpace(string(data)), err)
	}
	return v, nil
}
