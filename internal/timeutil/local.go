package timeutil

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Local is the chain's business timezone. Report dates are calendar days in
// this zone, whatever the server runs in.
var Local *time.Location

func init() {
	name := os.Getenv("SHOP_TZ")
	if name == "" {
		name = "Asia/Baghdad"
	}
	var err error
	Local, err = time.LoadLocation(name)
	if err != nil {
		Local = time.FixedZone("UTC+3", 3*60*60)
	}
}

// Now returns the current time in the business timezone
func Now() time.Time {
	return time.Now().In(Local)
}

// Today returns today's report date
func Today() string {
	return Now().Format(DateLayout)
}

// dateLayouts are the spellings accepted in uploads. Workbooks come from
// phones and spreadsheets alike, so be liberal here and strict everywhere else.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
}

// NormalizeDate parses a user-supplied date into the canonical "2006-01-02"
// form. Everything past the parser deals only in canonical dates.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, Local); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}

// StartOfDay returns 00:00:00 in the business timezone for the given time
func StartOfDay(t time.Time) time.Time {
	lt := t.In(Local)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, Local)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
