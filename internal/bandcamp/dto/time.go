package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// BandcampTime is a custom time type that handles Bandcamp's date formats.
type BandcampTime struct {
	time.Time
}

var timeFormats = []string{
	"02 Jan 2006 15:04:05 MST", // "01 Jan 2023 00:00:00 GMT"
	"2 Jan 2006 15:04:05 MST",  // "1 Jan 2023 00:00:00 GMT"
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses a Bandcamp date string or unix timestamp.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// UnmarshalJSON accepts a date string or a unix timestamp.
func (bt *BandcampTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		bt.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = strconv.FormatInt(n, 10)
	}

	t, err := ParseTime(s)
	if err != nil {
		return err
	}
	bt.Time = t
	return nil
}

// timeOf reads a date from a gjson value, ignoring unparseable input.
func timeOf(r gjson.Result) time.Time {
	if !r.Exists() {
		return time.Time{}
	}
	if r.Type == gjson.Number {
		return time.Unix(r.Int(), 0).UTC()
	}
	t, _ := ParseTime(r.String())
	return t
}
