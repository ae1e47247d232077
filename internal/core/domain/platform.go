package domain

// Platform identifies a connected social network
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYouTube   Platform = "youtube"
)

// Operation is a logical API operation resolved to a concrete
// endpoint per platform by the registry.
type Operation string

const (
	OperationProfile   Operation = "profile"
	OperationPost      Operation = "post"
	OperationAnalytics Operation = "analytics"
)

// AllPlatforms returns the closed set of supported platforms.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformFacebook,
		PlatformTwitter,
		PlatformInstagram,
		PlatformLinkedIn,
		PlatformYouTube,
	}
}

// ParsePlatform validates a platform string from an external caller.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	switch p {
	case PlatformFacebook, PlatformTwitter, PlatformInstagram, PlatformLinkedIn, PlatformYouTube:
		return p, nil
	}
	return "", ErrUnknownPlatform
}

// DisplayName returns a human-readable name for a platform.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformFacebook:
		return "Facebook"
	case PlatformTwitter:
		return "Twitter / X"
	case PlatformInstagram:
		return "Instagram"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformYouTube:
		return "YouTube"
	default:
		return string(p)
	}
}
