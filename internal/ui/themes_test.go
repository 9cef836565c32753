package ui

import (
	"bytes"
	"testing"
)

func TestSetTheme(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())

	tests := []struct {
		name string
		want string
	}{
		{"dark", "dark"},
		{"light", "light"},
		{"none", "none"},
		{"unknown", "dark"},
		{"", "dark"},
	}
	for _, tt := range tests {
		SetTheme(tt.name)
		if got := GetCurrentTheme().Name; got != tt.want {
			t.Errorf("SetTheme(%q) selected %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestInitThemeNonTerminal(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())

	SetCurrentTheme(DarkTheme)
	InitTheme(&bytes.Buffer{}, false)
	if GetCurrentTheme().Name != "none" {
		t.Errorf("a buffer is not a terminal, theme = %q", GetCurrentTheme().Name)
	}

	SetCurrentTheme(DarkTheme)
	InitTheme(&bytes.Buffer{}, true)
	if ColorRed() != "" || ColorReset() != "" {
		t.Error("--no-color must clear every escape code")
	}
}

func TestCategoryColor(t *testing.T) {
	defer SetCurrentTheme(GetCurrentTheme())
	SetCurrentTheme(DarkTheme)

	tests := []struct {
		category string
		want     string
	}{
		{"CRITICAL", DarkTheme.Critical},
		{"ERROR", DarkTheme.Error},
		{"warning", DarkTheme.Warning},
		{"INFO", DarkTheme.Info},
		{"VERBOSE", DarkTheme.Verbose},
		{"CONVERTER", ""},
	}
	for _, tt := range tests {
		if got := CategoryColor(tt.category); got != tt.want {
			t.Errorf("CategoryColor(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}

	SetCurrentTheme(NoColorTheme)
	if CategoryColor("ERROR") != "" {
		t.Error("no-color theme must not color categories")
	}
}
