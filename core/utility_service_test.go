package core

import "testing"

func TestUtilityService(t *testing.T) {
	s := NewUtilityService("welcome", "bc1qdonate", "photond", "0.1.0")
	s.Ping()

	if got := s.Banner(); got != "welcome" {
		t.Fatalf("Banner: got %q", got)
	}
	if got := s.DonationAddress(); got != "bc1qdonate" {
		t.Fatalf("DonationAddress: got %q", got)
	}
	v := s.Version()
	if v.Agent != "photond" || v.Version != "0.1.0" {
		t.Fatalf("Version: got %+v", v)
	}
}
