package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-engine/internal/campaign"
)

func TestEvaluate(t *testing.T) {
	sale, _, err := campaign.Decode([]byte(`{"enabled":true,"startDate":"2024-01-01","endDate":"2024-01-31","text":"Sale!"}`), time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name       string
		cfg        campaign.Config
		configured bool
		at         time.Time
		wantReason campaign.Reason
		wantView   bool
	}{
		{"unconfigured", campaign.Config{}, false, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), campaign.ReasonUnconfigured, false},
		{"before start", sale, true, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), campaign.ReasonNotStarted, false},
		{"inside window", sale, true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), campaign.ReasonActive, true},
		{"last evening", sale, true, time.Date(2024, 1, 31, 22, 0, 0, 0, time.UTC), campaign.ReasonActive, true},
		{"after end", sale, true, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), campaign.ReasonEnded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := evaluate(tt.cfg, tt.configured, tt.at)
			assert.Equal(t, tt.wantReason, p.Decision.Reason)
			assert.Equal(t, tt.wantView, p.View != nil)
		})
	}
}

func TestWritePresentation(t *testing.T) {
	cfg, _, err := campaign.Decode([]byte(`{"enabled":true,"text":"Hi","fontSize":20}`), time.UTC)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writePresentation(&buf, evaluate(cfg, true, time.Now())))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]any{"display": true, "reason": "active"}, got["decision"])
	view := got["view"].(map[string]any)
	assert.Equal(t, "Hi", view["text"])
	assert.EqualValues(t, 20, view["fontSize"])
}
