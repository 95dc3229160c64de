package power

import (
	"testing"
	"time"

	"github.com/genricoloni/nowshowing/internal/domain"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "08:00", expected: 8 * time.Hour},
		{input: "23:30:15", expected: 23*time.Hour + 30*time.Minute + 15*time.Second},
		{input: " 7:05 ", expected: 7*time.Hour + 5*time.Minute},
		{input: "", wantErr: true},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "12:00:00:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIsOnTime(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	at := func(h, m, s int) time.Time {
		return time.Date(2024, 3, 15, h, m, s, 0, loc)
	}

	tests := []struct {
		name     string
		now      time.Time
		start    string
		end      string
		expected bool
	}{
		{name: "Inside window", now: at(12, 0, 0), start: "08:00", end: "23:00", expected: true},
		{name: "Exactly at start is on", now: at(8, 0, 0), start: "08:00", end: "23:00", expected: true},
		{name: "One second before start", now: at(7, 59, 59), start: "08:00", end: "23:00", expected: false},
		{name: "Exactly at end is off", now: at(23, 0, 0), start: "08:00", end: "23:00", expected: false},
		{name: "One second before end", now: at(22, 59, 59), start: "08:00", end: "23:00", expected: true},
		{name: "Cross midnight late evening", now: at(23, 30, 0), start: "18:00", end: "02:00", expected: true},
		{name: "Cross midnight early morning", now: at(1, 0, 0), start: "18:00", end: "02:00", expected: true},
		{name: "Cross midnight outside", now: at(10, 0, 0), start: "18:00", end: "02:00", expected: false},
		{name: "Seconds precision", now: at(8, 0, 29), start: "08:00:30", end: "09:00", expected: false},
		{name: "Empty bounds", now: at(12, 0, 0), start: "", end: "", expected: false},
		{name: "Equal bounds", now: at(12, 0, 0), start: "12:00", end: "12:00", expected: false},
		{name: "Garbage bound", now: at(12, 0, 0), start: "8am", end: "23:00", expected: false},
		{
			name:     "Converted to reference zone",
			now:      time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC), // 12:00 in New York (EDT)
			start:    "11:00",
			end:      "13:00",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnTime(tt.now, tt.start, tt.end, loc); got != tt.expected {
				t.Errorf("IsOnTime(%s, %q, %q): expected %v, got %v",
					tt.now.Format(time.TimeOnly), tt.start, tt.end, tt.expected, got)
			}
		})
	}
}

func TestGate_Apply(t *testing.T) {
	gate, err := NewGate("UTC")
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	gate.now = func() time.Time { return time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		cmd      domain.PowerCommand
		start    string
		end      string
		expected domain.PowerCommand
	}{
		{name: "On inside window", cmd: domain.PowerOn, start: "05:00", end: "07:00", expected: domain.PowerOn},
		{name: "On outside window downgraded", cmd: domain.PowerOn, start: "08:00", end: "23:00", expected: domain.PowerStandby},
		{name: "Standby never changed", cmd: domain.PowerStandby, start: "05:00", end: "07:00", expected: domain.PowerStandby},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gate.Apply(tt.cmd, tt.start, tt.end); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestNewGate_BadTimezone(t *testing.T) {
	if _, err := NewGate("Mars/Olympus_Mons"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
