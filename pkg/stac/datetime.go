package stac

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The temporal filter accepts RFC 3339 timestamps, open range ends
// (".."), and truncated dates (YYYY, YYYY-MM, YYYY-MM-DD) which expand to
// the full period they name: "2017" covers the whole year, and as a range
// end it expands to the last second of 2017.

var datetimeRegex = regexp.MustCompile(
	`^(?P<year>\d{4})(-(?P<month>\d{2})(-(?P<day>\d{2})` +
		`(?P<remainder>[Tt]\d{2}:\d{2}:\d{2}(\.\d+)?` +
		`(?P<tz>[Zz]|[-+]\d{2}:\d{2})?)?)?)?$`,
)

const datetimeFormat = "2006-01-02T15:04:05Z"

// FormatTime renders a timestamp the way the API expects: UTC, second
// resolution, Z suffix.
func FormatTime(t time.Time) string {
	return t.UTC().Format(datetimeFormat)
}

// FormatDatetime normalizes a datetime filter value. Single instants pass
// through (truncated dates expand to a range covering their period);
// "start/end" ranges normalize both ends, with ".." or an empty component
// leaving that end open.
func FormatDatetime(value string) (string, error) {
	if value == "" {
		return "", nil
	}

	components := strings.Split(value, "/")

	switch len(components) {
	case 1:
		start, end, err := expandComponent(components[0])
		if err != nil {
			return "", err
		}

		if start == ".." {
			return "", fmt.Errorf("%w: cannot build an interval from %q alone", ErrInvalidDatetime, value)
		}

		if end != "" {
			return start + "/" + end, nil
		}

		return start, nil
	case 2:
		start, _, err := expandComponent(components[0])
		if err != nil {
			return "", err
		}

		backupEnd, end, err := expandComponent(components[1])
		if err != nil {
			return "", err
		}

		if end == "" {
			end = backupEnd
		}

		if start == ".." && end == ".." {
			return "", fmt.Errorf("%w: double open-ended interval", ErrInvalidDatetime)
		}

		return start + "/" + end, nil
	default:
		return "", fmt.Errorf("%w: too many components (max=2, actual=%d): %q", ErrInvalidDatetime, len(components), value)
	}
}

// expandComponent returns the component's start and, for truncated dates,
// the end of the period at the component's resolution. An exact timestamp
// has no period end.
func expandComponent(component string) (start, end string, err error) {
	if component == "" || component == ".." {
		return "..", "", nil
	}

	match := datetimeRegex.FindStringSubmatch(component)
	if match == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidDatetime, component)
	}

	groups := make(map[string]string)

	for i, name := range datetimeRegex.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}

	if groups["remainder"] != "" {
		if groups["tz"] != "" {
			return component, "", nil
		}

		// No timezone given: assume UTC.
		return component + "Z", "", nil
	}

	year, _ := strconv.Atoi(groups["year"])

	var from time.Time

	switch {
	case groups["day"] != "":
		month, _ := strconv.Atoi(groups["month"])
		day, _ := strconv.Atoi(groups["day"])
		from = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

		return FormatTime(from), FormatTime(from.AddDate(0, 0, 1).Add(-time.Second)), nil
	case groups["month"] != "":
		month, _ := strconv.Atoi(groups["month"])
		from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

		return FormatTime(from), FormatTime(from.AddDate(0, 1, 0).Add(-time.Second)), nil
	default:
		from = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)

		return FormatTime(from), FormatTime(from.AddDate(1, 0, 0).Add(-time.Second)), nil
	}
}
