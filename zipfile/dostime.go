package zipfile

import (
	"fmt"
	"time"
)

// dosDateTime packs a modification time into the 16-bit DOS date and time
// fields: date = 7-bit (year-1980) | 4-bit month | 5-bit day, time = 5-bit
// hour | 6-bit minute | 5-bit (second/2). Resolution is two seconds and
// there is no timezone; times are encoded in UTC so identical inputs produce
// identical archive bytes everywhere.
//
// The format cannot represent years before 1980 or after 2107; such
// timestamps are an error, never silently truncated.
func dosDateTime(t time.Time) (date, tod uint16, err error) {
	t = t.UTC()
	year := t.Year()
	if year < 1980 || year > 1980+0x7f {
		return 0, 0, fmt.Errorf("%w: %s", ErrTimestampRange, t.Format(time.RFC3339))
	}

	date = uint16(year-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	tod = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	return date, tod, nil
}
