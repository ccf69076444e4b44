package history

// Profile is a coarse banding of an agent's reputation.
type Profile string

const (
	ProfileTrusted    Profile = "trusted"    // 80-100
	ProfileReliable   Profile = "reliable"   // 60-79
	ProfileNeutral    Profile = "neutral"    // 40-59
	ProfileConcerning Profile = "concerning" // 20-39
	ProfileHighRisk   Profile = "high_risk"  // 0-19
)

// ProfileFor maps a reputation to its profile.
func ProfileFor(reputation float64) Profile {
	switch {
	case reputation >= 80:
		return ProfileTrusted
	case reputation >= 60:
		return ProfileReliable
	case reputation >= 40:
		return ProfileNeutral
	case reputation >= 20:
		return ProfileConcerning
	default:
		return ProfileHighRisk
	}
}
