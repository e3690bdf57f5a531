package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/framecheck/model"
)

var (
	// ErrInvalidTLE is returned when TLE text does not follow the fixed column format.
	ErrInvalidTLE = errors.New("invalid TLE")
	// ErrChecksum is returned when a TLE line fails its modulo-10 checksum.
	ErrChecksum = errors.New("TLE checksum mismatch")
)

// TLELineLength is the fixed width of both element lines.
const TLELineLength = 69

// pivotYear splits two-digit epoch years between the 1900s and 2000s.
const pivotYear = 57

// ParseTLE validates and decodes a named two-line element set.
//
// Validation happens here rather than inside go-satellite, which calls
// log.Fatal on malformed input.
func ParseTLE(name, line1, line2 string) (model.SatelliteRecord, error) {
	name = strings.TrimSpace(name)
	line1 = strings.TrimRight(line1, " \t\r\n")
	line2 = strings.TrimRight(line2, " \t\r\n")

	if name == "" {
		return model.SatelliteRecord{}, fmt.Errorf("%w: name is required", ErrInvalidTLE)
	}
	if err := checkLine(line1, '1'); err != nil {
		return model.SatelliteRecord{}, err
	}
	if err := checkLine(line2, '2'); err != nil {
		return model.SatelliteRecord{}, err
	}

	rec := model.SatelliteRecord{Name: name, Line1: line1, Line2: line2}
	if err := decodeLine1(line1, &rec); err != nil {
		return model.SatelliteRecord{}, err
	}
	if err := decodeLine2(line2, &rec); err != nil {
		return model.SatelliteRecord{}, err
	}
	if err := decodeSGP4Fields(line1, line2, &rec); err != nil {
		return model.SatelliteRecord{}, err
	}
	return rec, nil
}

// Checksum computes the modulo-10 checksum of the first 68 columns of a line:
// digits count at face value, minus signs count as one, everything else as zero.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line) && i < TLELineLength-1; i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return sum % 10
}

func checkLine(line string, number byte) error {
	if len(line) != TLELineLength {
		return fmt.Errorf("%w: line %c length %d, expected %d", ErrInvalidTLE, number, len(line), TLELineLength)
	}
	if line[0] != number || line[1] != ' ' {
		return fmt.Errorf("%w: line %c must start with %q", ErrInvalidTLE, number, string(number)+" ")
	}
	last := line[TLELineLength-1]
	if last < '0' || last > '9' {
		return fmt.Errorf("%w: line %c checksum column is %q", ErrInvalidTLE, number, last)
	}
	if want := Checksum(line); int(last-'0') != want {
		return fmt.Errorf("%w: line %c has %c, computed %d", ErrChecksum, number, last, want)
	}
	return nil
}

// field returns the trimmed text between 1-based inclusive columns.
func field(line string, from, to int) string {
	return strings.TrimSpace(line[from-1 : to])
}

func fieldInt(line string, from, to int, what string) (int, error) {
	v, err := strconv.Atoi(field(line, from, to))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidTLE, what, err)
	}
	return v, nil
}

func fieldFloat(line string, from, to int, what string) (float64, error) {
	v, err := strconv.ParseFloat(field(line, from, to), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidTLE, what, err)
	}
	return v, nil
}

func decodeLine1(line string, rec *model.SatelliteRecord) error {
	id, err := fieldInt(line, 3, 7, "catalog number")
	if err != nil {
		return err
	}
	rec.NoradID = id
	rec.Classification = model.Classification(line[7])
	rec.IntlDesignator = field(line, 10, 17)

	yy, err := fieldInt(line, 19, 20, "epoch year")
	if err != nil {
		return err
	}
	doy, err := fieldFloat(line, 21, 32, "epoch day")
	if err != nil {
		return err
	}
	if doy < 1 || doy >= 367 {
		return fmt.Errorf("%w: epoch day %v out of range", ErrInvalidTLE, doy)
	}
	rec.ElementEpoch = tleEpoch(yy, doy)
	return nil
}

func decodeLine2(line string, rec *model.SatelliteRecord) error {
	id, err := fieldInt(line, 3, 7, "catalog number")
	if err != nil {
		return err
	}
	if id != rec.NoradID {
		return fmt.Errorf("%w: catalog numbers differ (%d vs %d)", ErrInvalidTLE, rec.NoradID, id)
	}

	if rec.InclinationDeg, err = fieldFloat(line, 9, 16, "inclination"); err != nil {
		return err
	}
	if rec.RAANDeg, err = fieldFloat(line, 18, 25, "right ascension of node"); err != nil {
		return err
	}
	ecc, err := fieldFloat(line, 27, 33, "eccentricity")
	if err != nil {
		return err
	}
	rec.Eccentricity = ecc / 1e7
	if rec.ArgPerigeeDeg, err = fieldFloat(line, 35, 42, "argument of perigee"); err != nil {
		return err
	}
	if rec.MeanAnomalyDeg, err = fieldFloat(line, 44, 51, "mean anomaly"); err != nil {
		return err
	}
	if rec.MeanMotionRevDay, err = fieldFloat(line, 53, 63, "mean motion"); err != nil {
		return err
	}
	if rec.MeanMotionRevDay <= 0 {
		return fmt.Errorf("%w: mean motion must be positive", ErrInvalidTLE)
	}
	if rev := field(line, 64, 68); rev != "" {
		if rec.RevolutionNumber, err = strconv.Atoi(rev); err != nil {
			return fmt.Errorf("%w: revolution number: %v", ErrInvalidTLE, err)
		}
	}
	if rec.InclinationDeg < 0 || rec.InclinationDeg > 180 {
		return fmt.Errorf("%w: inclination %v out of range", ErrInvalidTLE, rec.InclinationDeg)
	}
	return nil
}

// tleEpoch converts a two-digit year and fractional day-of-year to UTC.
func tleEpoch(yy int, doy float64) time.Time {
	year := 1900 + yy
	if yy < pivotYear {
		year = 2000 + yy
	}
	days, frac := math.Modf(doy - 1)
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	us := math.Round(frac * 86400 * 1e6)
	return start.AddDate(0, 0, int(days)).Add(time.Duration(us) * time.Microsecond)
}

// decodeSGP4Fields parses the element columns exactly as go-satellite slices
// and joins them. go-satellite exits the process when one of these strings
// does not parse, so each one must parse here first.
func decodeSGP4Fields(line1, line2 string, rec *model.SatelliteRecord) error {
	// go-satellite drops at most two spaces from these fields.
	squeeze := func(s string) string { return strings.Replace(s, " ", "", 2) }

	if _, err := strconv.ParseInt(line1[18:20], 10, 0); err != nil {
		return fmt.Errorf("%w: epoch year: %v", ErrInvalidTLE, err)
	}
	fields := []struct {
		what string
		text string
		dst  *float64
	}{
		{"epoch day", line1[20:32], nil},
		{"mean motion derivative", squeeze(line1[33:43]), &rec.MeanMotionDot},
		{"mean motion second derivative", squeeze(line1[44:45] + "." + line1[45:50] + "e" + line1[50:52]), &rec.MeanMotionDDot},
		{"B* drag term", squeeze(line1[53:54] + "." + line1[54:59] + "e" + line1[59:61]), &rec.BStar},
		{"inclination", squeeze(line2[8:16]), nil},
		{"right ascension of node", squeeze(line2[17:25]), nil},
		{"eccentricity", "." + line2[26:33], nil},
		{"argument of perigee", squeeze(line2[34:42]), nil},
		{"mean anomaly", squeeze(line2[43:51]), nil},
		{"mean motion", squeeze(line2[52:63]), nil},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.text, 64)
		if err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalidTLE, f.what, f.text, err)
		}
		if f.dst != nil {
			*f.dst = v
		}
	}
	return nil
}
