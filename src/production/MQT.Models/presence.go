package mqtmodels

// PresenceMarker is the retained value the bridge keeps on its status topic
type PresenceMarker string

const (
	PresenceOnline  PresenceMarker = "ONLINE"
	PresenceOffline PresenceMarker = "OFFLINE"
)

func (p PresenceMarker) String() string { return string(p) }
