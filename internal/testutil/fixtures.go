package testutil

// Fixture data for tests. Primitive values only, no domain dependencies.

// FixtureDomains contains valid domains.
var FixtureDomains = []string{
	"example.com",
	"test.example.com",
	"subdomain.example.com",
	"another.test.example.com",
}

// FixtureInvalidDomains contains strings that must not validate as domains.
var FixtureInvalidDomains = []string{
	"",
	"not a domain",
	"192.168.1.1",
	"2001:db8::1",
	"-invalid.com",
	"invalid-.com",
	".example.com",
	"example..com",
}

// FixtureIPs contains IPv4 addresses.
var FixtureIPs = []string{
	"192.168.1.1",
	"10.0.0.1",
	"172.16.0.1",
	"8.8.8.8",
}

// FixtureIPv6 contains IPv6 addresses.
var FixtureIPv6 = []string{
	"2001:db8::1",
	"fe80::1",
	"::1",
}

// FixtureEmails contains valid email addresses.
var FixtureEmails = []string{
	"admin@example.com",
	"contact@example.com",
	"info@subdomain.example.com",
}

// FixtureURLs contains valid URLs.
var FixtureURLs = []string{
	"https://example.com",
	"https://example.com/path",
	"https://subdomain.example.com/api/v1",
	"http://test.example.com:8080",
}

// FixtureUsernames contains handles that classify as usernames.
var FixtureUsernames = []string{
	"johndoe",
	"jane_doe42",
	"@octocat",
}

// FixtureCoordinates contains latitude/longitude pairs.
var FixtureCoordinates = []string{
	"40.7128,-74.0060",
	"-33.8688, 151.2093",
	"51.5074 -0.1278",
}
