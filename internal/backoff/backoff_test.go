package backoff

import (
	"testing"
	"time"
)

func TestExponentialDoubles(t *testing.T) {
	s := Exponential{}
	base := 100 * time.Millisecond

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{10, 100 * time.Millisecond * 1024},
	}

	for _, tt := range tests {
		if got := s.Delay(tt.retry, base); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestExponentialNegativeRetry(t *testing.T) {
	s := Exponential{}
	if got := s.Delay(-5, time.Second); got != time.Second {
		t.Errorf("Delay(-5) = %v, want %v", got, time.Second)
	}
}

func TestExponentialOverflowGuard(t *testing.T) {
	s := Exponential{}
	got := s.Delay(500, time.Second)
	if got <= 0 {
		t.Errorf("Delay(500) = %v, want positive", got)
	}
}
