package fetcher

import "github.com/bipard/healthfetch/pkg/datekey"

// Pending computes the work list: the requested dates that are not yet
// stored, in the requested order. Pure set difference; running it twice
// against the same stored set yields the same list.
func Pending(requested []datekey.Key, stored map[datekey.Key]bool) []datekey.Key {
	pending := make([]datekey.Key, 0, len(requested))
	for _, d := range requested {
		if stored[d] {
			continue
		}
		pending = append(pending, d)
	}
	return pending
}
