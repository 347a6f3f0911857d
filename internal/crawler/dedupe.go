package crawler

// Dedupe returns the records with distinct keys, keeping the first
// occurrence of each key and the order in which keys first appeared.
func Dedupe[R Record](records []R) []R {
	seen := make(map[string]struct{}, len(records))
	out := make([]R, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}
