package tokens

// FilterTokens returns a new list with toRemove excluded if present. An empty
// toRemove leaves the list unchanged. The input slice is never mutated.
func FilterTokens(tokens []string, toRemove string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if toRemove != "" && t == toRemove {
			continue
		}
		out = append(out, t)
	}
	return out
}
