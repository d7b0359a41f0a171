package timezone

import "time"

// MinOffset and MaxOffset bound the whole-hour UTC offsets a subscriber can pick.
const (
	MinOffset = -11
	MaxOffset = 12
)

// Zone is one selectable UTC offset with the places it covers.
type Zone struct {
	Offset int      `json:"offset"`
	Names  []string `json:"names"`
}

var zones = []Zone{
	{-11, []string{"Midway Island", "Samoa"}},
	{-10, []string{"Hawaii"}},
	{-9, []string{"Alaska"}},
	{-8, []string{"Pacific Time (US & Canada)", "Tijuana"}},
	{-7, []string{"Mountain Time (US & Canada)", "Chihuahua", "Mazatlan"}},
	{-6, []string{"Central Time (US & Canada)", "Mexico City", "Central America"}},
	{-5, []string{"Eastern Time (US & Canada)", "Lima"}},
	{-4, []string{"Atlantic Time (Canada)", "Santiago"}},
	{-3, []string{"Buenos Aires", "Greenland"}},
	{-2, []string{"Mid-Atlantic"}},
	{-1, []string{"Cape Verde Is."}},
	{0, []string{"London", "Casablanca"}},
	{1, []string{"Paris", "West Central Africa"}},
	{2, []string{"Cairo", "Helsinki"}},
	{3, []string{"Moscow", "Baghdad"}},
	{4, []string{"Abu Dhabi", "Tbilisi"}},
	{5, []string{"Ekaterinburg", "Islamabad"}},
	{6, []string{"Dhaka", "Novosibirsk"}},
	{7, []string{"Bangkok", "Jakarta"}},
	{8, []string{"Beijing", "Perth"}},
	{9, []string{"Seoul", "Tokyo"}},
	{10, []string{"Sydney", "Brisbane", "Guam"}},
	{11, []string{"Magadan", "Solomon Is."}},
	{12, []string{"Fiji", "Marshall Is."}},
}

// Zones returns the offset table ordered from west to east.
func Zones() []Zone {
	out := make([]Zone, len(zones))
	for i, z := range zones {
		out[i] = Zone{Offset: z.Offset, Names: append([]string(nil), z.Names...)}
	}
	return out
}

// Valid reports whether offset is in the zone table.
func Valid(offset int) bool {
	for _, z := range zones {
		if z.Offset == offset {
			return true
		}
	}
	return false
}

// ResolveBucket returns the single offset whose local hour equals sendHour at nowUTC.
// The result always satisfies (hour(nowUTC)+offset) mod 24 == sendHour and lies
// in [MinOffset, MaxOffset]; ok is false only if that offset is missing from the table.
func ResolveBucket(nowUTC time.Time, sendHour int) (offset int, ok bool) {
	h := nowUTC.UTC().Hour() - sendHour
	if h < 0 {
		h += 24
	}
	if h < 12 {
		offset = -h
	} else {
		offset = 24 - h
	}
	return offset, Valid(offset)
}

// LocalDate returns midnight of the local calendar day at offset, expressed in a fixed zone.
func LocalDate(nowUTC time.Time, offset int) time.Time {
	loc := time.FixedZone("", offset*3600)
	local := nowUTC.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
