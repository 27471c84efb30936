package util

import "testing"

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      bool
		expected bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL_ENV", tt.value)
		if got := ParseBoolEnv("TEST_BOOL_ENV", tt.def); got != tt.expected {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.expected)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		value    string
		def      int
		expected int
	}{
		{"", 3, 3},
		{"0", 3, 0},
		{"2", 1, 2},
		{" 5 ", 1, 5},
		{"-1", 1, 1},
		{"abc", 1, 1},
	}
	for _, tt := range tests {
		t.Setenv("TEST_INT_ENV", tt.value)
		if got := ParseIntEnv("TEST_INT_ENV", tt.def); got != tt.expected {
			t.Errorf("ParseIntEnv(%q, %d) = %d, want %d", tt.value, tt.def, got, tt.expected)
		}
	}
}
