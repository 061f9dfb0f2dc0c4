package domain

type Platform string

const (
	PlatformTwitch Platform = "twitch"
	PlatformKick   Platform = "kick"
	PlatformWeb    Platform = "web"
)

type Message struct {
	Platform  Platform
	ChannelID string
	UserID    string
	Username  string
	Text      string
	IsPrivate bool

	// Flags que vienen de la plataforma (los rellenamos en el adapter)
	IsPlatformOwner bool
	IsPlatformAdmin bool
	IsPlatformMod   bool
	IsPlatformVip   bool
	IsSubscriber    bool
	IsFollower      bool

	// TeamLevel es la jerarquía del usuario en el canal (0 = espectador).
	TeamLevel int
	Source    RequestSource
}

// Team levels assigned from platform badges.
const (
	TeamLevelViewer      = 0
	TeamLevelFollower    = 1
	TeamLevelSubscriber  = 2
	TeamLevelVip         = 3
	TeamLevelModerator   = 4
	TeamLevelBroadcaster = 5
)

// ResolveTeamLevel returns the highest level implied by the message flags.
func (m Message) ResolveTeamLevel() int {
	level := m.TeamLevel
	raise := func(v int) {
		if v > level {
			level = v
		}
	}
	if m.IsFollower {
		raise(TeamLevelFollower)
	}
	if m.IsSubscriber {
		raise(TeamLevelSubscriber)
	}
	if m.IsPlatformVip {
		raise(TeamLevelVip)
	}
	if m.IsPlatformMod || m.IsPlatformAdmin {
		raise(TeamLevelModerator)
	}
	if m.IsPlatformOwner {
		raise(TeamLevelBroadcaster)
	}
	return level
}
