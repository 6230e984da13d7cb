package notification

// DeviceToken is one registered push target for a user.
type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"` // "android", "ios", "" = unknown
}
