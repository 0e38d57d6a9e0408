package core

// UtilityService answers the handful of static/liveness requests.
// Grounded on original_source/src/net/utility.rs.
type UtilityService struct {
	banner          string
	donationAddress string
	agent           string
	version         string
}

// NewUtilityService constructs a utility service from configured
// strings.
func NewUtilityService(banner, donationAddress, agent, version string) *UtilityService {
	return &UtilityService{
		banner:          banner,
		donationAddress: donationAddress,
		agent:           agent,
		version:         version,
	}
}

// Ping is a liveness no-op.
func (s *UtilityService) Ping() {}

// Banner returns the configured server banner.
func (s *UtilityService) Banner() string { return s.banner }

// DonationAddress returns the configured donation address.
func (s *UtilityService) DonationAddress() string { return s.donationAddress }

// Version returns the server's agent/version identification.
func (s *UtilityService) Version() VersionInfo {
	return VersionInfo{Agent: s.agent, Version: s.version}
}
