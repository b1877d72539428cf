package tools

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LocalInvoker serves capabilities answered from the host itself: clock and
// thermal state. It needs no network and is always registered.
type LocalInvoker struct {
	// Location is the timezone used for time reports. Defaults to Local.
	Location *time.Location

	// ThermalPath is the sysfs file read for the system temperature.
	ThermalPath string

	// now is swappable for tests.
	now func() time.Time
}

// NewLocalInvoker creates a local invoker reporting in the given timezone.
func NewLocalInvoker(loc *time.Location) *LocalInvoker {
	if loc == nil {
		loc = time.Local
	}
	return &LocalInvoker{
		Location:    loc,
		ThermalPath: "/sys/class/thermal/thermal_zone0/temp",
		now:         time.Now,
	}
}

// ListCapabilities implements Invoker.
func (l *LocalInvoker) ListCapabilities(ctx context.Context) ([]Descriptor, error) {
	return []Descriptor{
		{
			ID:          "get_current_time",
			Description: "Report the current local date and time",
			Modality:    ModalityText,
		},
		{
			ID:          "get_system_temperature",
			Description: "Report the host's thermal sensor reading",
			Modality:    ModalityText,
		},
	}, nil
}

// Invoke implements Invoker.
func (l *LocalInvoker) Invoke(ctx context.Context, id string, args map[string]any) (*Result, error) {
	switch id {
	case "get_current_time":
		now := l.now().In(l.Location)
		return &Result{
			Content: fmt.Sprintf("It is %s.", now.Format("Monday, January 2 2006, 15:04")),
		}, nil
	case "get_system_temperature":
		return l.readTemperature()
	default:
		return nil, fmt.Errorf("unknown capability %q", id)
	}
}

func (l *LocalInvoker) readTemperature() (*Result, error) {
	raw, err := os.ReadFile(l.ThermalPath)
	if err != nil {
		return nil, fmt.Errorf("read thermal sensor: %w", err)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse thermal sensor: %w", err)
	}
	return &Result{
		Content: fmt.Sprintf("System temperature is %.1f°C.", float64(milli)/1000.0),
	}, nil
}
