// Package ids implements the sequential id scheme used by every collection:
// a new id is the largest numeric id in use plus one.
package ids

import "strconv"

// Next returns the decimal string following the largest numeric id in
// existing. Non-numeric ids are ignored; an empty collection starts at "1".
func Next(existing []string) string {
	var max int64
	for _, id := range existing {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return strconv.FormatInt(max+1, 10)
}
