package core

import "testing"

func TestLooksInteractive(t *testing.T) {
	cases := []struct {
		command string
		want    bool
	}{
		{"sudo apt update", true},
		{"sudo -S apt update", false},
		{"sudo apt update # NOPASSWD", false},
		{"ssh host uptime", true},
		{"passwd", true},
		{"su root", true},
		{"ls -la", false},
		{"echo sushi", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := LooksInteractive(tc.command); got != tc.want {
			t.Fatalf("LooksInteractive(%q) = %v, want %v", tc.command, got, tc.want)
		}
	}
}
