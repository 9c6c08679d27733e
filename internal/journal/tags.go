package journal

import "regexp"

// Matches #tag with word or CJK runes, e.g. #health or #读书.
var hashtagRe = regexp.MustCompile(`#([\w\p{Han}]+)`)

// ExtractTags pulls #tags out of content, deduplicated in first-seen order.
// exclude drops one reserved label (the archive's own journal label) so user
// tags never collide with it. Case is preserved; CJK tags have no case and
// mixed-case English tags read as written in the archive.
func ExtractTags(content, exclude string) []string {
	matches := hashtagRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(matches))

	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		t := m[1]
		if t == exclude {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)

		if len(out) >= 20 { // cap
			break
		}
	}

	return out
}
