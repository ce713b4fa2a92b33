package calendar

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HebrewMonth numbers Hebrew months starting from Nisan.
// Tishrei (7) begins the year; Adar II (13) exists only in leap years,
// and in ordinary years month 12 is plain Adar.
type HebrewMonth int

const (
	Nisan HebrewMonth = iota + 1
	Iyyar
	Sivan
	Tamuz
	Av
	Elul
	Tishrei
	Cheshvan
	Kislev
	Tevet
	Shvat
	Adar1
	Adar2
)

var monthNames = [...]string{
	Nisan:    "Nisan",
	Iyyar:    "Iyyar",
	Sivan:    "Sivan",
	Tamuz:    "Tamuz",
	Av:       "Av",
	Elul:     "Elul",
	Tishrei:  "Tishrei",
	Cheshvan: "Cheshvan",
	Kislev:   "Kislev",
	Tevet:    "Tevet",
	Shvat:    "Sh'vat",
	Adar1:    "Adar I",
	Adar2:    "Adar II",
}

var hebrewMonthNames = [...]string{
	Nisan:    "ניסן",
	Iyyar:    "אייר",
	Sivan:    "סיון",
	Tamuz:    "תמוז",
	Av:       "אב",
	Elul:     "אלול",
	Tishrei:  "תשרי",
	Cheshvan: "חשון",
	Kislev:   "כסלו",
	Tevet:    "טבת",
	Shvat:    "שבט",
	Adar1:    "אדר א׳",
	Adar2:    "אדר ב׳",
}

// Valid reports whether m is a month number at all (1..13).
func (m HebrewMonth) Valid() bool {
	return m >= Nisan && m <= Adar2
}

// Name returns the English month name as used in the given year.
func (m HebrewMonth) Name(year int) string {
	if !m.Valid() {
		return fmt.Sprintf("Month(%d)", int(m))
	}
	if m == Adar1 && !IsLeapYear(year) {
		return "Adar"
	}
	return monthNames[m]
}

// HebrewName returns the Hebrew month name as used in the given year.
func (m HebrewMonth) HebrewName(year int) string {
	if !m.Valid() {
		return ""
	}
	if m == Adar1 && !IsLeapYear(year) {
		return "אדר"
	}
	return hebrewMonthNames[m]
}

// IsLeapYear reports whether the Hebrew year has thirteen months
// (years 3, 6, 8, 11, 14, 17 and 19 of the 19-year cycle).
func IsLeapYear(year int) bool {
	return (7*year+1)%19 < 7
}

// MonthsInYear returns 13 for leap years and 12 otherwise.
func MonthsInYear(year int) int {
	if IsLeapYear(year) {
		return 13
	}
	return 12
}

// MonthExists reports whether month m occurs in the Hebrew year.
func MonthExists(m HebrewMonth, year int) bool {
	if !m.Valid() {
		return false
	}
	return int(m) <= MonthsInYear(year)
}

// HebrewDate is a day in the Hebrew calendar.
type HebrewDate struct {
	Day   int
	Month HebrewMonth
	Year  int
}

// String renders the date in English, e.g. "20 Iyyar 5750".
func (h HebrewDate) String() string {
	return fmt.Sprintf("%d %s %d", h.Day, h.Month.Name(h.Year), h.Year)
}

// Gematriya renders the date with Hebrew numerals, e.g. "כ׳ אייר תש״נ".
func (h HebrewDate) Gematriya() string {
	return Gematriya(h.Day) + " " + h.Month.HebrewName(h.Year) + " " + Gematriya(h.Year%1000)
}

type hebrewDateJSON struct {
	Day       int         `json:"day"`
	Month     HebrewMonth `json:"month"`
	Year      int         `json:"year"`
	MonthName string      `json:"month_name,omitempty"`
	Display   string      `json:"display,omitempty"`
	Hebrew    string      `json:"hebrew,omitempty"`
}

// MarshalJSON includes display renderings alongside the numeric fields.
func (h HebrewDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(hebrewDateJSON{
		Day:       h.Day,
		Month:     h.Month,
		Year:      h.Year,
		MonthName: h.Month.Name(h.Year),
		Display:   h.String(),
		Hebrew:    h.Gematriya(),
	})
}

// UnmarshalJSON reads the numeric fields and ignores the renderings.
func (h *HebrewDate) UnmarshalJSON(b []byte) error {
	var v hebrewDateJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*h = HebrewDate{Day: v.Day, Month: v.Month, Year: v.Year}
	return nil
}

// Gematriya writes n (1..999) with Hebrew letters, using geresh for a single
// letter and gershayim before the last letter otherwise.
// 15 and 16 are written ט״ו and ט״ז.
func Gematriya(n int) string {
	if n <= 0 {
		return ""
	}
	n %= 1000

	var letters []rune
	for n >= 400 {
		letters = append(letters, 'ת')
		n -= 400
	}
	if n >= 100 {
		letters = append(letters, []rune("קרש")[n/100-1])
		n %= 100
	}
	switch n {
	case 15:
		letters = append(letters, 'ט', 'ו')
		n = 0
	case 16:
		letters = append(letters, 'ט', 'ז')
		n = 0
	}
	if n >= 10 {
		letters = append(letters, []rune("יכלמנסעפצ")[n/10-1])
		n %= 10
	}
	if n > 0 {
		letters = append(letters, []rune("אבגדהוזחט")[n-1])
	}

	var b strings.Builder
	if len(letters) == 1 {
		b.WriteRune(letters[0])
		b.WriteRune('׳')
		return b.String()
	}
	for i, r := range letters {
		if i == len(letters)-1 {
			b.WriteRune('״')
		}
		b.WriteRune(r)
	}
	return b.String()
}
