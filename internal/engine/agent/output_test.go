package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutputLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		ok          bool
		bytes       int64
		hasBytes    bool
		percent     float64
		hasPercent  bool
		speed, eta  string
	}{
		{
			name:       "full status line",
			line:       "`big.rar' at 52428800 (25%) 4.5M/s eta:35s [Receiving data]",
			ok:         true,
			bytes:      52428800,
			hasBytes:   true,
			percent:    25,
			hasPercent: true,
			speed:      "4.5M/s",
			eta:        "35s",
		},
		{
			name:     "summary line",
			line:     "209715200 bytes transferred in 47 seconds (4.25 MiB/s)",
			ok:       true,
			bytes:    209715200,
			hasBytes: true,
			speed:    "4.25MiB/s",
		},
		{
			name:       "percent only",
			line:       "progress (99%)",
			ok:         true,
			percent:    99,
			hasPercent: true,
		},
		{
			name: "eta only with hours",
			line: "eta:1h2m",
			ok:   true,
			eta:  "1h2m",
		},
		{name: "noise", line: "Connecting to example.com (1.2.3.4) port 22", ok: false},
		{name: "empty", line: "   ", ok: false},
		{name: "impossible percent", line: "(250%)", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := ParseOutputLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bytes, msg.Downloaded)
			assert.Equal(t, tt.hasBytes, msg.HasBytes)
			assert.Equal(t, tt.percent, msg.Percent)
			assert.Equal(t, tt.hasPercent, msg.HasPercent)
			assert.Equal(t, tt.speed, msg.Speed)
			assert.Equal(t, tt.eta, msg.ETA)
		})
	}
}
