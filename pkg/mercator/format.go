package mercator

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

var formatRegexp = regexp.MustCompile(
	`^(90|[0-8]\d|\d)°([0-5]\d)'([0-5]\d)(?:\.(\d))?"([NS])\s(180|1[0-7]\d|\d\d|\d)°([0-5]\d)'([0-5]\d)(?:\.(\d))?"([EW])$`,
)

// Format renders c as D°MM'SS.S"H D°MM'SS.S"H, latitude first.
func Format(c Coordinates) string {
	lat, latSuffix := c.Latitude, 'N'
	if lat < 0 {
		lat, latSuffix = -lat, 'S'
	}

	lng, lngSuffix := c.Longitude, 'E'
	if lng < 0 {
		lng, lngSuffix = -lng, 'W'
	}

	return fmt.Sprintf("%s%c %s%c", formatPart(lat), latSuffix, formatPart(lng), lngSuffix)
}

func formatPart(n float64) string {
	// Work in tenths of an arc-second so rounding carries into minutes and
	// degrees instead of producing 60.0 seconds.
	tenths := int64(math.Round(n * 36000))
	deg := tenths / 36000
	tenths -= deg * 36000
	minutes := tenths / 600
	tenths -= minutes * 600

	return fmt.Sprintf("%d°%02d'%02d.%d\"", deg, minutes, tenths/10, tenths%10)
}

// Parse is the strict inverse of Format. The decimal of the seconds is
// optional.
func Parse(s string) (Coordinates, error) {
	m := formatRegexp.FindStringSubmatch(s)
	if m == nil {
		return Coordinates{}, fmt.Errorf("%w: %q", ErrInvalidCoordinates, s)
	}

	lat := parsePart(m[1], m[2], m[3], m[4])
	if m[5] == "S" {
		lat = -lat
	}

	lng := parsePart(m[6], m[7], m[8], m[9])
	if m[10] == "W" {
		lng = -lng
	}

	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return Coordinates{}, fmt.Errorf("%w: %q out of range", ErrInvalidCoordinates, s)
	}

	return Coordinates{Latitude: lat, Longitude: lng}, nil
}

func parsePart(deg, min, sec, tenth string) float64 {
	d, _ := strconv.Atoi(deg)
	m, _ := strconv.Atoi(min)
	s, _ := strconv.Atoi(sec)

	v := float64(d) + float64(m*60+s)/3600
	if tenth != "" {
		t, _ := strconv.Atoi(tenth)
		v += float64(t) / 36000
	}
	return v
}
