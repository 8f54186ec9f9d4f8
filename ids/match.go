package ids

// Match reports whether id is addressed by pattern. In pattern keys, "*"
// matches exactly one key and "**" matches any number of path keys
// (including none). Types must be equal.
func Match(pattern, id ID) bool {
	if len(pattern.Types) != len(id.Types) || len(pattern.Embeds) != len(id.Embeds) {
		return false
	}
	for i := range pattern.Types {
		if pattern.Types[i] != id.Types[i] {
			return false
		}
	}
	for i := range pattern.Embeds {
		if !keyMatch(pattern.Embeds[i], id.Embeds[i]) {
			return false
		}
	}
	return pathMatch(pattern.Path, id.Path)
}

// MatchString parses both arguments and calls Match; unparsable input never
// matches.
func MatchString(pattern, id string) bool {
	p, err := Parse(pattern)
	if err != nil {
		return false
	}
	i, err := Parse(id)
	if err != nil {
		return false
	}
	return Match(p, i)
}

func keyMatch(p, k string) bool { return p == Wildcard || p == k }

func pathMatch(p, k []string) bool {
	for len(p) > 0 {
		if p[0] == Globstar {
			rest := p[1:]
			for i := 0; i <= len(k); i++ {
				if pathMatch(rest, k[i:]) {
					return true
				}
			}
			return false
		}
		if len(k) == 0 || !keyMatch(p[0], k[0]) {
			return false
		}
		p, k = p[1:], k[1:]
	}
	return len(k) == 0
}
