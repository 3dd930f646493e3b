package compliance

import (
	"context"
	"strings"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/platform/errors"
	"argus/internal/testutil"
)

func TestChecker_Check(t *testing.T) {
	c := New(Options{BlockedTargets: []string{"Victim.example", "jdoe"}})

	tests := []struct {
		name    string
		target  string
		wantErr bool
	}{
		{"public domain", "example.com", false},
		{"public ip", "93.184.216.34", false},
		{"username", "octocat", false},
		{"blocked domain", "victim.example", true},
		{"blocked via url host", "https://www.victim.example/path", true},
		{"blocked username", "JDoe", true},
		{"gov suffix", "irs.gov", true},
		{"mil subdomain", "mail.army.mil", true},
		{"gov email", "someone@agency.gov", true},
		{"private ip", "192.168.1.10", true},
		{"loopback ip", "127.0.0.1", true},
		{"mapped private", "::ffff:10.0.0.1", true},
		{"localhost url", "http://localhost:8080/", true},
		{"too long", "a" + strings.Repeat("b", 2048) + ".com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(context.Background(), domain.NewTarget(tt.target))
			if tt.wantErr {
				testutil.AssertError(t, err, tt.target)
				testutil.AssertTrue(t, errors.Is(err, ErrRejected), "wraps ErrRejected")
			} else {
				testutil.AssertNoError(t, err, tt.target)
			}
		})
	}
}

func TestChecker_AllowPrivateAndCustomSuffixes(t *testing.T) {
	c := New(Options{AllowPrivate: true, BlockedSuffixes: []string{"internal"}, MaxTargetLength: 20})

	testutil.AssertNoError(t, c.Check(context.Background(), domain.NewTarget("10.0.0.1")), "private allowed")
	testutil.AssertNoError(t, c.Check(context.Background(), domain.NewTarget("irs.gov")), "defaults replaced")
	testutil.AssertError(t, c.Check(context.Background(), domain.NewTarget("db.corp.internal")), "custom suffix")
	testutil.AssertError(t, c.Check(context.Background(), domain.NewTarget("averyveryverylongname.com")), "custom length")
}
