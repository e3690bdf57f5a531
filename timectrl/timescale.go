package timectrl

import (
	"fmt"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
)

// ttMinusTAI is the constant offset between Terrestrial Time and TAI in seconds.
const ttMinusTAI = 32.184

// leapStep is the TAI-UTC offset in effect from a given UTC instant.
type leapStep struct {
	from    time.Time
	seconds float64
}

// leapTable lists TAI-UTC since the 1972 introduction of integer leap seconds.
var leapTable = []leapStep{
	{utcDate(1972, 1, 1), 10}, {utcDate(1972, 7, 1), 11}, {utcDate(1973, 1, 1), 12},
	{utcDate(1974, 1, 1), 13}, {utcDate(1975, 1, 1), 14}, {utcDate(1976, 1, 1), 15},
	{utcDate(1977, 1, 1), 16}, {utcDate(1978, 1, 1), 17}, {utcDate(1979, 1, 1), 18},
	{utcDate(1980, 1, 1), 19}, {utcDate(1981, 7, 1), 20}, {utcDate(1982, 7, 1), 21},
	{utcDate(1983, 7, 1), 22}, {utcDate(1985, 7, 1), 23}, {utcDate(1988, 1, 1), 24},
	{utcDate(1990, 1, 1), 25}, {utcDate(1991, 1, 1), 26}, {utcDate(1992, 7, 1), 27},
	{utcDate(1993, 7, 1), 28}, {utcDate(1994, 7, 1), 29}, {utcDate(1996, 1, 1), 30},
	{utcDate(1997, 7, 1), 31}, {utcDate(1999, 1, 1), 32}, {utcDate(2006, 1, 1), 33},
	{utcDate(2009, 1, 1), 34}, {utcDate(2012, 7, 1), 35}, {utcDate(2015, 7, 1), 36},
	{utcDate(2017, 1, 1), 37},
}

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Epoch is a single instant expressed on the time scales the frame
// transformations need. UT1 is taken equal to UTC.
type Epoch struct {
	Time        time.Time
	JDUTC       float64
	JDTT        float64
	LeapSeconds float64
}

// JulianYearTT returns the epoch as a Julian year on the TT scale (e.g. 2024.65).
func (e Epoch) JulianYearTT() float64 {
	return base.JDEToJulianYear(e.JDTT)
}

// Add returns the epoch shifted by d.
func (e Epoch) Add(d time.Duration) Epoch {
	return FromTime(e.Time.Add(d))
}

func (e Epoch) String() string {
	return e.Time.Format(time.RFC3339Nano)
}

// FromTime converts an arbitrary time.Time to an epoch.
func FromTime(t time.Time) Epoch {
	t = t.UTC()
	leap := LeapSeconds(t)
	jd := julian.TimeToJD(t)
	return Epoch{
		Time:        t,
		JDUTC:       jd,
		JDTT:        jd + (leap+ttMinusTAI)/86400.0,
		LeapSeconds: leap,
	}
}

// LeapSeconds returns TAI-UTC in effect at t. Instants before 1972 use the
// 1972 value; the pre-1972 rubber-second era is not modelled.
func LeapSeconds(t time.Time) float64 {
	t = t.UTC()
	leap := leapTable[0].seconds
	for _, step := range leapTable {
		if t.Before(step.from) {
			break
		}
		leap = step.seconds
	}
	return leap
}

var epochLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseEpoch parses an RFC 3339 timestamp or a zone-less timestamp, which is taken as UTC.
func ParseEpoch(s string) (Epoch, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Epoch{}, fmt.Errorf("parse epoch: empty value")
	}
	for _, layout := range epochLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return FromTime(t), nil
		}
	}
	return Epoch{}, fmt.Errorf("parse epoch %q: expected RFC 3339 or 2006-01-02T15:04:05", s)
}
