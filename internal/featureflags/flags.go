// Package featureflags evaluates rollout rules configured as a comma-separated
// list such as "require_confirmation=on,new_explore=25%".
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// RequireConfirmation rejects logins from accounts that have not confirmed their email.
	RequireConfirmation = "require_confirmation"
)

// rule is either a fixed switch or a percentage of users.
type rule struct {
	on      bool
	percent int
	rollout bool
}

// Set is an immutable collection of parsed rules. A nil Set has every flag off.
type Set struct {
	rules map[string]rule
}

// Parse reads raw, skipping malformed entries.
func Parse(raw string) *Set {
	rules := make(map[string]rule)
	for _, entry := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(entry, "=")
		name, value = normalize(name), normalize(value)
		if !ok || name == "" || value == "" {
			continue
		}

		switch value {
		case "on", "true", "1":
			rules[name] = rule{on: true}
		case "off", "false", "0":
			rules[name] = rule{}
		default:
			pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
			if err != nil || !strings.HasSuffix(value, "%") {
				continue
			}
			rules[name] = rule{percent: min(max(pct, 0), 100), rollout: true}
		}
	}
	return &Set{rules: rules}
}

// Enabled reports whether name is on for userID. Percentage rules place each
// user in a stable bucket; anonymous requests are only included at 100%.
func (s *Set) Enabled(name string, userID uint) bool {
	if s == nil {
		return false
	}
	r, ok := s.rules[normalize(name)]
	switch {
	case !ok:
		return false
	case !r.rollout:
		return r.on
	case r.percent >= 100:
		return true
	case r.percent == 0 || userID == 0:
		return false
	default:
		return bucket(name, userID) < r.percent
	}
}

// For evaluates every configured flag for userID.
func (s *Set) For(userID uint) map[string]bool {
	if s == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(s.rules))
	for name := range s.rules {
		out[name] = s.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
