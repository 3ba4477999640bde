package otp

import (
	"strconv"
	"testing"
	"time"
)

func TestNewGenerator_Validation(t *testing.T) {
	if _, err := NewGenerator(3, time.Hour); err == nil {
		t.Fatalf("expected error for length 3")
	}
	if _, err := NewGenerator(7, time.Hour); err == nil {
		t.Fatalf("expected error for length 7")
	}
	if _, err := NewGenerator(4, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
}

func TestGenerator_CodeShape(t *testing.T) {
	for _, length := range []int{4, 5, 6} {
		g, err := NewGenerator(length, time.Hour)
		if err != nil {
			t.Fatalf("NewGenerator(%d): %v", length, err)
		}
		for i := 0; i < 200; i++ {
			o, err := g.New()
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if len(o.Code) != length {
				t.Fatalf("code %q has %d digits, want %d", o.Code, len(o.Code), length)
			}
			if o.Code[0] == '0' {
				t.Fatalf("code %q has a leading zero", o.Code)
			}
			if _, err := strconv.Atoi(o.Code); err != nil {
				t.Fatalf("code %q is not numeric", o.Code)
			}
		}
	}
}

func TestGenerator_ExpiryUsesClock(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	g, _ := NewGenerator(DefaultLength, DefaultTTL)
	g.WithClock(func() time.Time { return base })
	o, err := g.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := base.Add(time.Hour).Truncate(time.Millisecond)
	if !o.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", o.ExpiresAt, want)
	}
}

func TestExpired(t *testing.T) {
	now := time.Now()
	code := "1234"
	later := now.Add(time.Minute)
	if Expired(&code, &later, now) {
		t.Fatalf("future expiry should be valid")
	}
	if !Expired(&code, &now, now) {
		t.Fatalf("expiry equal to now counts as expired")
	}
	if !Expired(nil, &later, now) {
		t.Fatalf("missing code counts as expired")
	}
	if !Expired(&code, nil, now) {
		t.Fatalf("missing expiry counts as expired")
	}
}

func TestEqual(t *testing.T) {
	if !Equal("4821", "4821") || Equal("4821", "4812") || Equal("482", "4821") {
		t.Fatalf("constant-time compare misbehaves")
	}
}
