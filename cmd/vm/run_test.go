package main

import "testing"

func TestParseArg(t *testing.T) {
	cases := []struct {
		in   string
		want interface{}
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.5", float64(3.5)},
		{"true", true},
		{"false", false},
		{"hello", "hello"},
	}
	for _, c := range cases {
		got := parseArg(c.in)
		if got != c.want {
			t.Errorf("parseArg(%q) = %#v, want %#v", c.in, got, c.want)
		}
	}
}
