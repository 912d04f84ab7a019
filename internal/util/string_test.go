package util

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a, b ,c", []string{"a", "b", "c"}},
		{"实用性强，可执行", []string{"实用性强", "可执行"}},
		{" , ，", []string{}},
		{"", []string{}},
		{"single", []string{"single"}},
	}

	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, SplitList(tc.in)); diff != "" {
			t.Fatalf("SplitList(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("hello big  world"); got != 3 {
		t.Fatalf("expected 3 words, got %d", got)
	}
	if got := WordCount("信息充足 ok"); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestClamp(t *testing.T) {
	if Clamp(12, 1, 10) != 10 || Clamp(-3, 1, 10) != 1 || Clamp(7, 1, 10) != 7 {
		t.Fatalf("clamp out of range")
	}
}
