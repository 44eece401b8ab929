package utils

import "testing"

func TestParseAmount(t *testing.T) {
	t.Run("Given thousands separators When parsed Then yields the integer", func(t *testing.T) {
		if got := ParseAmount("12,500"); got != 12500 {
			t.Errorf("ParseAmount(%q) = %d, want 12500", "12,500", got)
		}
	})

	t.Run("Given a fractional amount When parsed Then truncates", func(t *testing.T) {
		if got := ParseAmount("12500.75"); got != 12500 {
			t.Errorf("ParseAmount(%q) = %d, want 12500", "12500.75", got)
		}
	})

	t.Run("Given garbage When parsed Then yields zero instead of failing", func(t *testing.T) {
		for _, s := range []string{"abc", "", "12f00", "-"} {
			if got := ParseAmount(s); got != 0 {
				t.Errorf("ParseAmount(%q) = %d, want 0", s, got)
			}
		}
	})

	t.Run("Given surrounding whitespace When parsed Then still parses", func(t *testing.T) {
		if got := ParseAmount("  7,000 "); got != 7000 {
			t.Errorf("ParseAmount = %d, want 7000", got)
		}
	})
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1 000"},
		{1234567, "1 234 567"},
		{-50000, "-50 000"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
