package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 9, 1, hour, minute, 0, 0, time.Local)
}

func TestInTradingSession(t *testing.T) {
	f := &DataFeed{}

	testCases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"Before open", at(9, 29), false},
		{"Morning open", at(9, 30), true},
		{"Mid morning", at(10, 45), true},
		{"Morning close", at(11, 30), true},
		{"Lunch break", at(12, 0), false},
		{"Afternoon open", at(13, 0), true},
		{"Afternoon close", at(15, 0), true},
		{"After close", at(15, 1), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.InTradingSession(tc.t))
		})
	}
}

func TestAfterTradingSession(t *testing.T) {
	f := &DataFeed{}

	assert.False(t, f.AfterTradingSession(at(14, 59)))
	assert.True(t, f.AfterTradingSession(at(15, 0)))
	assert.True(t, f.AfterTradingSession(at(20, 0)))
}
