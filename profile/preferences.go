package profile

// SecurityPreferences carries the security-relevant toggles a host
// persists alongside the profile.
type SecurityPreferences struct {
	IsCloudProfileSyncEnabled bool `json:"isCloudProfileSyncEnabled"`
	IsDeveloperModeEnabled    bool `json:"isDeveloperModeEnabled"`
	IsAdvancedLockEnabled     bool `json:"isAdvancedLockEnabled"`
}

// AppPreferences is the preferences slice of a Profile: the saved
// gateways and the host-level security toggles.
type AppPreferences struct {
	Gateways SavedGateways       `json:"gateways"`
	Security SecurityPreferences `json:"security"`
}
