package core

import (
	"errors"
	"slices"
	"testing"
)

type dated struct {
	name string
	date Date
}

func (d dated) RecordDate() Date { return d.date }

func TestParseDate_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		in   string
		want Date
	}{
		{"2025-04-31", NewDate(2025, 4, 30)},
		{"2025-02-31", NewDate(2025, 2, 28)},
		{"2024-02-30", NewDate(2024, 2, 29)},
		{"2025-01-31", NewDate(2025, 1, 31)},
		{"2025-06-15", NewDate(2025, 6, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want.Time) {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "2025-13-01", "2025-00-10", "2025-01-00", "abc", "2025/01/01"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod("2025-04-01", "2025-04-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.End.String() != "2025-04-30" {
		t.Errorf("end = %s, want 2025-04-30", p.End)
	}

	_, err = NewPeriod("2025-05-01", "2025-04-01")
	var ve *ValidationError
	if !errors.As(err, &ve) || !errors.Is(err, ErrInvertedPeriod) {
		t.Errorf("inverted period error = %v, want ValidationError wrapping ErrInvertedPeriod", err)
	}

	p, err = NewPeriod("", "")
	if err != nil || p.Bounded() {
		t.Errorf("empty bounds should give an unbounded period, got %+v err=%v", p, err)
	}
}

func TestFilter(t *testing.T) {
	records := []dated{
		{"a", NewDate(2025, 3, 31)},
		{"b", NewDate(2025, 4, 1)},
		{"undated", Date{}},
		{"c", NewDate(2025, 4, 15)},
		{"d", NewDate(2025, 4, 30)},
		{"e", NewDate(2025, 5, 1)},
	}
	names := func(rs []dated) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.name
		}
		return out
	}

	april := MonthPeriod(2025, 4)
	got := slices.Collect(Filter(records, april))
	if want := []string{"b", "c", "d"}; !slices.Equal(names(got), want) {
		t.Fatalf("bounded filter = %v, want %v", names(got), want)
	}

	again := slices.Collect(Filter(got, april))
	if !slices.Equal(names(again), names(got)) {
		t.Fatalf("filter is not idempotent: %v then %v", names(got), names(again))
	}

	all := slices.Collect(Filter(records, Period{}))
	if len(all) != len(records) {
		t.Fatalf("unbounded filter returned %d records, want %d", len(all), len(records))
	}

	from := slices.Collect(Filter(records, Period{Start: NewDate(2025, 4, 30)}))
	if want := []string{"d", "e"}; !slices.Equal(names(from), want) {
		t.Fatalf("open-ended filter = %v, want %v", names(from), want)
	}
}

func TestFilter_StopsEarly(t *testing.T) {
	records := []dated{{"a", NewDate(2025, 1, 1)}, {"b", NewDate(2025, 1, 2)}}
	n := 0
	for range Filter(records, Period{}) {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected a single iteration, got %d", n)
	}
}

func TestCanonicalFixedCharge(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Internet", "Internet", false},
		{"gas", "Gás", false},
		{"PENSÃO", "Pensão", false},
		{" energia ", "Energia", false},
		{"Academia", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalFixedCharge(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("CanonicalFixedCharge(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("CanonicalFixedCharge(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAttachment_Validate(t *testing.T) {
	base := Attachment{Owner: OwnerFixed, Description: "luz", Period: "03/2025"}

	exact := base
	exact.Data = make([]byte, MaxUploadBytes)
	if err := exact.Validate(); err != nil {
		t.Fatalf("exactly 10 MiB should be accepted, got %v", err)
	}

	over := base
	over.Data = make([]byte, MaxUploadBytes+1)
	var tooLarge *FileTooLargeError
	if err := over.Validate(); !errors.As(err, &tooLarge) {
		t.Fatalf("10 MiB + 1 should fail with FileTooLargeError, got %v", err)
	}

	noPeriod := base
	noPeriod.Period = " "
	if err := noPeriod.Validate(); !errors.Is(err, ErrEmptyPeriod) {
		t.Fatalf("empty period error = %v", err)
	}

	badOwner := base
	badOwner.Owner = "carro"
	if err := badOwner.Validate(); !errors.Is(err, ErrUnknownOwnerKind) {
		t.Fatalf("unknown owner error = %v", err)
	}
}
