package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/bdougie/photoreel/internal/models"
)

var gpsFields = []exif.FieldName{
	exif.GPSLatitude,
	exif.GPSLatitudeRef,
	exif.GPSLongitude,
	exif.GPSLongitudeRef,
}

// ExtractMetadata reads the capture timestamp and GPS position embedded in
// an image. It never fails: any problem is logged and every field is left nil.
func ExtractMetadata(path string, logger *slog.Logger) models.ImageMetadata {
	meta, err := extractMetadata(path)
	if err != nil {
		logger.Warn("metadata extraction failed", "path", path, "error", err)
		return models.ImageMetadata{}
	}
	return meta
}

func extractMetadata(path string) (models.ImageMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.ImageMetadata{}, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return models.ImageMetadata{}, fmt.Errorf("decode exif: %w", err)
	}

	var meta models.ImageMetadata

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		dt, err := tag.StringVal()
		if err != nil {
			return models.ImageMetadata{}, fmt.Errorf("read %s: %w", exif.DateTimeOriginal, err)
		}
		dt = strings.TrimRight(dt, "\x00")
		if dt != "" {
			meta.DateTime = &dt
		}
	}

	if !hasGPS(x) {
		return meta, nil
	}

	lat, err := readCoordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	lon, err := readCoordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	meta.Latitude = &lat
	meta.Longitude = &lon

	return meta, nil
}

// hasGPS reports whether any of the coordinate tags is present. A GPS block
// carrying only unrelated tags counts as absent.
func hasGPS(x *exif.Exif) bool {
	for _, name := range gpsFields {
		if _, err := x.Get(name); err == nil {
			return true
		}
	}
	return false
}

func readCoordinate(x *exif.Exif, valueField, refField exif.FieldName) (float64, error) {
	tag, err := x.Get(valueField)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", valueField, err)
	}
	if tag.Count < 3 {
		return 0, fmt.Errorf("read %s: want 3 rationals, got %d", valueField, tag.Count)
	}

	var dms [3][2]int64
	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, fmt.Errorf("read %s[%d]: %w", valueField, i, err)
		}
		dms[i] = [2]int64{num, den}
	}

	// A missing hemisphere reference leaves the value positive.
	var ref string
	if refTag, err := x.Get(refField); err == nil {
		if ref, err = refTag.StringVal(); err != nil {
			return 0, fmt.Errorf("read %s: %w", refField, err)
		}
	}

	return DMSToDecimal(dms, ref)
}

// ErrZeroDenominator is returned for a rational with a zero denominator.
var ErrZeroDenominator = errors.New("rational with zero denominator")

// DMSToDecimal converts degrees, minutes and seconds, each given as a
// numerator/denominator pair, to decimal degrees. The result is negated for
// the southern and western hemispheres.
func DMSToDecimal(dms [3][2]int64, ref string) (float64, error) {
	var parts [3]float64
	for i, r := range dms {
		if r[1] == 0 {
			return 0, ErrZeroDenominator
		}
		parts[i] = float64(r[0]) / float64(r[1])
	}

	decimal := parts[0] + parts[1]/60 + parts[2]/3600

	switch strings.TrimSpace(strings.TrimRight(ref, "\x00")) {
	case "S", "W":
		decimal = -decimal
	}
	return decimal, nil
}
