package models

import (
	"math"
	"testing"
)

func TestItemIDValid(t *testing.T) {
	tests := []struct {
		name  string
		id    ItemID
		valid bool
	}{
		{"Zero", 0, false},
		{"Smallest valid", 1, true},
		{"Typical id", 123456789, true},
		{"Largest valid", ItemID(math.MaxInt64), true},
		{"Sign bit set", ItemID(math.MaxInt64) + 1, false},
		{"Negative as signed", ItemID(math.MaxUint64 - 2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.Valid(); got != tt.valid {
				t.Errorf("ItemID(%d).Valid() = %t, want %t", uint64(tt.id), got, tt.valid)
			}
		})
	}
}

func TestResult(t *testing.T) {
	tests := []struct {
		r    Result
		str  string
		isOK bool
	}{
		{ResultNone, "None", false},
		{ResultOK, "OK", true},
		{ResultFail, "Fail", false},
		{ResultIOFailure, "IOFailure", false},
		{ResultFileNotFound, "FileNotFound", false},
		{Result(42), "Unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.r.String(); got != tt.str {
				t.Errorf("String() = %q, want %q", got, tt.str)
			}
			if got := tt.r.OK(); got != tt.isOK {
				t.Errorf("OK() = %t, want %t", got, tt.isOK)
			}
		})
	}
}

func TestItemStateHas(t *testing.T) {
	s := StateSubscribed | StateInstalled

	if !s.Has(StateSubscribed) {
		t.Error("Has(StateSubscribed) = false")
	}
	if !s.Has(StateSubscribed | StateInstalled) {
		t.Error("Has(combined mask) = false")
	}
	if s.Has(StateDownloading) {
		t.Error("Has(StateDownloading) = true for a state without the flag")
	}
	if s.Has(StateSubscribed | StateDownloading) {
		t.Error("Has must require every flag in the mask")
	}
}

func TestItemStateString(t *testing.T) {
	tests := []struct {
		name     string
		state    ItemState
		expected string
	}{
		{"None", StateNone, "None"},
		{"Single flag", StateInstalled, "Installed"},
		{"Multiple flags", StateSubscribed | StateDownloading, "Subscribed|Downloading"},
		{"All flags", StateSubscribed | StateInstalled | StateNeedsUpdate | StateDownloading | StateDownloadPending,
			"Subscribed|Installed|NeedsUpdate|Downloading|DownloadPending"},
		{"Unknown bits only", ItemState(1 << 20), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
