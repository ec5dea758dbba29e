package utils

import "testing"

func TestStripID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"user mention", "<@123456789012345678>", "123456789012345678"},
		{"nickname mention", "<@!123456789012345678>", "123456789012345678"},
		{"role mention", "<@&123456789012345678>", "123456789012345678"},
		{"channel mention", "<#123456789012345678>", "123456789012345678"},
		{"bare id", "123456789012345678", "123456789012345678"},
		{"whitespace", "  <@123456789012345678>  ", "123456789012345678"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripID(tt.input); got != tt.want {
				t.Errorf("StripID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsSnowflake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"typical id", "123456789012345678", true},
		{"min length", "123456789012345", true},
		{"too short", "12345678901234", false},
		{"too long", "1234567890123456789012", false},
		{"letters", "12345678901234567a", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSnowflake(tt.input); got != tt.want {
				t.Errorf("IsSnowflake(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRandomIntRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		got := RandomInt(5, 10)
		if got < 5 || got > 10 {
			t.Fatalf("RandomInt(5, 10) = %d, out of range", got)
		}
	}
}

func TestRandomIntDegenerate(t *testing.T) {
	if got := RandomInt(7, 7); got != 7 {
		t.Errorf("RandomInt(7, 7) = %d, want 7", got)
	}
	if got := RandomInt(10, 5); got != 10 {
		t.Errorf("RandomInt(10, 5) = %d, want min", got)
	}
}
