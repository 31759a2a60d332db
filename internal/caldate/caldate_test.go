package caldate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"compact", "20260310T150000", "20260310T150000"},
		{"iso dashed", "2026-03-10T15:00:00", "20260310T150000"},
		{"iso with Z", "2026-03-10T15:00:00Z", "20260310T150000"},
		{"positive offset", "2026-03-10T15:00:00+01:00", "20260310T150000"},
		{"negative offset", "2026-03-10T15:00:00-0500", "20260310T150000"},
		{"fractional seconds", "2026-03-10T15:00:00.123", "20260310T150000"},
		{"fraction and zone", "2026-03-10T15:30:45.500Z", "20260310T153045"},
		{"hours only", "2026-03-10T13", "20260310T130000"},
		{"hours and minutes", "2026-03-10T13:30", "20260310T133000"},
		{"compact hours and minutes", "20260310T1330", "20260310T133000"},
		{"space separator", "2026-03-10 09:15", "20260310T091500"},
		{"date only", "2026-03-15", "20260315T000000"},
		{"compact date only", "20260315", "20260315T000000"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"20260310T150000",
		"2026-03-10T15:00:00Z",
		"2026-03-10T15:00:00-05:00",
		"2026-03-10T15:00:00.999",
		"2026-03-10T13",
		"2026-03-15",
	}

	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once), "normalizing %q twice", in)
		require.True(t, Valid(once), "normalized %q should be valid", in)
	}
}

func TestNormalize_Garbage(t *testing.T) {
	require.False(t, Valid(Normalize("March 15, 2026")))
	require.False(t, Valid(Normalize("tomorrow")))
	require.False(t, Valid(Normalize("2026-02-30")))
}

func TestHasTime(t *testing.T) {
	require.True(t, HasTime("2026-03-10T15:00:00"))
	require.True(t, HasTime("20260310T000100"))
	require.False(t, HasTime("2026-03-10"))
	require.False(t, HasTime("20260310T000000"))
	require.False(t, HasTime(""))
}

func TestAdvanceYear(t *testing.T) {
	ref := time.Date(2026, time.February, 20, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"past year moves to reference year", "20250310T150000", "20260310T150000"},
		{"several years behind", "20190704T000000", "20260704T000000"},
		{"reference year unchanged", "20260101T090000", "20260101T090000"},
		{"future year unchanged", "20270310T150000", "20270310T150000"},
		{"leap day moves to next leap year", "20240229T120000", "20280229T120000"},
		{"earlier in the year moves past reference", "20250110T090000", "20270110T090000"},
		{"reference day kept", "20250220T080000", "20260220T080000"},
		{"invalid unchanged", "garbage", "garbage"},
		{"empty unchanged", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, AdvanceYear(tt.in, ref))
		})
	}
}

func TestAdvanceYear_SmallestYear(t *testing.T) {
	ref := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	floor := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)

	for year := 2000; year < 2026; year++ {
		for _, month := range []time.Month{time.March, time.June, time.October} {
			in := Format(time.Date(year, month, 10, 8, 0, 0, 0, time.UTC))
			got, err := Parse(AdvanceYear(in, ref))
			require.NoError(t, err)
			require.Equal(t, month, got.Month())
			require.Equal(t, 10, got.Day())
			require.False(t, got.Before(floor), "advanced %s to %s", in, Format(got))
			require.True(t, got.AddDate(-1, 0, 0).Before(floor), "advanced %s too far", in)
		}
	}
}

func TestAdvanceYear_LateReference(t *testing.T) {
	ref := time.Date(2026, time.October, 17, 14, 0, 0, 0, time.UTC)
	require.Equal(t, "20270310T090000", AdvanceYear("20250310T090000", ref))
	require.Equal(t, "20261120T090000", AdvanceYear("20251120T090000", ref))
	require.Equal(t, "20261017T090000", AdvanceYear("20251017T090000", ref))
}

func TestAddDays(t *testing.T) {
	require.Equal(t, "20260401T000000", AddDays("20260331T000000", 1))
	require.Equal(t, "20270101T103000", AddDays("20261231T103000", 1))
	require.Equal(t, "20260301T000000", AddDays("20260228T000000", 1))
	require.Equal(t, "not-a-date", AddDays("not-a-date", 1))

	before, err := Parse("20260310T150000")
	require.NoError(t, err)
	after, err := Parse(AddDays("20260310T150000", 1))
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, after.Sub(before))
}

func TestSameDay(t *testing.T) {
	require.True(t, SameDay("20260310T090000", "20260310T170000"))
	require.False(t, SameDay("20260310T090000", "20260311T090000"))
	require.False(t, SameDay("", "20260311T090000"))
}

func TestReferenceDate(t *testing.T) {
	now := time.Date(2026, time.February, 20, 15, 4, 5, 0, time.UTC)
	require.Equal(t, "02/20/2026", ReferenceDate(now))
	require.Equal(t, "20260220T000000", Today(now))
}
