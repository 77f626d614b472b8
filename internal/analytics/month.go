package analytics

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Month is a calendar year and month.
type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(d civil.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// Prev returns the calendar month immediately before m.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

func (m Month) Contains(d civil.Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// First and Last bound the month, both inclusive.
func (m Month) First() civil.Date {
	return civil.Date{Year: m.Year, Month: m.Month, Day: 1}
}

func (m Month) Last() civil.Date {
	return civil.DateOf(time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
