package chatauth

import "strings"

// Matches reports whether a user-supplied fragment satisfies the given
// challenge against the full secret. It is a pure function: no challenge
// kind or parameter value makes it panic, and anything malformed verifies
// as false rather than erroring.
//
// prefix, suffix and full compare case-sensitively; position compares
// case-insensitively. The asymmetry is deliberate product behavior and
// must not be normalized away.
func Matches(fullSecret, answer string, kind ChallengeKind, parameter int) bool {
	secret := strings.TrimSpace(fullSecret)
	answer = strings.TrimSpace(answer)
	runes := []rune(secret)

	switch kind {
	case ChallengePrefix:
		n := parameter
		if n == 0 {
			// parameter unset: the answer's own length decides the cut
			n = len([]rune(answer))
		}
		if n < 1 || n > len(runes) {
			return false
		}
		return string(runes[:n]) == answer

	case ChallengeSuffix:
		n := parameter
		if n == 0 {
			n = len([]rune(answer))
		}
		if n < 1 || n > len(runes) {
			return false
		}
		return string(runes[len(runes)-n:]) == answer

	case ChallengePosition:
		if parameter < 1 || parameter > len(runes) {
			return false
		}
		want := strings.ToUpper(string(runes[parameter-1]))
		return want == strings.ToUpper(answer)

	case ChallengeFull:
		return secret != "" && secret == answer

	default:
		return false
	}
}
