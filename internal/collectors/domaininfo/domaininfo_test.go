package domaininfo

import (
	"context"
	"net"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
	"argus/internal/platform/registry"
	"argus/internal/testutil"
)

const rdapBody = `{
  "objectClassName": "domain",
  "ldhName": "EXAMPLE.COM",
  "status": ["client transfer prohibited"],
  "secureDNS": {"delegationSigned": true},
  "events": [
    {"eventAction": "registration", "eventDate": "1995-08-14T04:00:00Z"},
    {"eventAction": "expiration", "eventDate": "2026-08-13T04:00:00Z"}
  ],
  "nameservers": [{"ldhName": "A.IANA-SERVERS.NET"}],
  "entities": [
    {"roles": ["registrar"], "publicIds": [{"type": "IANA Registrar ID", "identifier": "376"}],
     "vcardArray": ["vcard", [["version", {}, "text", "4.0"], ["fn", {}, "text", "RESERVED-Internet Assigned Numbers Authority"]]]},
    {"roles": ["registrant"],
     "vcardArray": ["vcard", [["fn", {}, "text", "Domain Admin"], ["org", {}, "text", "Example Org"], ["email", {}, "text", "admin@example.com"]]]},
    {"roles": ["technical"],
     "vcardArray": ["vcard", [["fn", {}, "text", "REDACTED FOR PRIVACY"], ["email", {}, "text", "hidden@example.com"]]]}
  ]
}`

func newTestCollector(t *testing.T, routes map[string]testutil.Route, res *testutil.FakeResolver) *Collector {
	t.Helper()
	srv := testutil.NewStubServer(t, routes)
	cfg := ports.DefaultCollectorConfig()
	cfg.Custom["rdap_url"] = srv.URL
	c := New(cfg, logx.NewSilent()).WithResolver(res)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func byType(out *domain.CollectorOutput) map[domain.EntityType][]domain.RawRecord {
	m := make(map[domain.EntityType][]domain.RawRecord)
	for _, r := range out.Records {
		m[r.Type] = append(m[r.Type], r)
	}
	return m
}

func TestRegistered(t *testing.T) {
	testutil.AssertTrue(t, registry.Global().IsRegistered("domain"), "self-registers on import")
	meta, _ := registry.Global().GetMetadata("domain")
	testutil.AssertTrue(t, meta.Accepts(domain.TargetDomain), "accepts domains")
}

func TestCollector_Execute(t *testing.T) {
	res := &testutil.FakeResolver{
		Hosts: map[string][]string{"api.example.com": {"93.184.216.34"}},
		NS:    map[string][]*net.NS{"example.com": {{Host: "a.iana-servers.net."}}},
		MX:    map[string][]*net.MX{"example.com": {{Host: "mail.example.com.", Pref: 10}}},
		TXT:   map[string][]string{"example.com": {"v=spf1 -all"}},
	}
	c := newTestCollector(t, map[string]testutil.Route{
		"/domain/example.com": {Body: rdapBody, ContentType: "application/rdap+json"},
	}, res)

	out, err := c.Execute(context.Background(), domain.NewTarget("https://api.example.com/path"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertLen(t, out.Errors, 0, "no soft errors")

	root := out.Records[0]
	testutil.AssertEqual(t, root.Type, domain.EntityDomain, "root first")
	testutil.AssertEqual(t, root.Value, "example.com", "registrable domain")
	testutil.AssertEqual(t, root.Metadata["registrar"], "RESERVED-Internet Assigned Numbers Authority", "registrar")
	testutil.AssertEqual(t, root.Metadata["registrar_iana"], "376", "iana id")
	testutil.AssertEqual(t, root.Metadata["created"], "1995-08-14T04:00:00Z", "created")
	testutil.AssertEqual(t, root.Metadata["spf"], "v=spf1 -all", "spf")
	testutil.AssertEqual(t, root.Metadata["dnssec"], true, "dnssec")

	types := byType(out)
	testutil.AssertLen(t, types[domain.EntityIP], 1, "one address")
	testutil.AssertLen(t, types[domain.EntitySubdomain], 1, "api host kept as subdomain")
	testutil.AssertLen(t, types[domain.EntityEmail], 1, "redacted contact skipped")
	testutil.AssertEqual(t, types[domain.EntityEmail][0].Metadata["contact_role"], "registrant", "contact role")
	testutil.AssertLen(t, types[domain.EntityOrganization], 1, "registrant org")

	rels := map[string]int{}
	for _, r := range out.Relationships {
		rels[r.RelationshipType]++
	}
	testutil.AssertEqual(t, rels[domain.RelResolvesTo], 1, "resolves_to")
	testutil.AssertEqual(t, rels[domain.RelHasNameserver], 2, "rdap and dns nameserver")
	testutil.AssertEqual(t, rels[domain.RelHasMX], 1, "has_mx")
	testutil.AssertEqual(t, rels[domain.RelHasContact], 1, "has_contact")
	testutil.AssertEqual(t, rels[domain.RelBelongsTo], 2, "org and subdomain")
}

func TestCollector_RDAPCached(t *testing.T) {
	srv := testutil.NewStubServer(t, map[string]testutil.Route{
		"/domain/example.com": {Body: rdapBody},
	})
	cfg := ports.DefaultCollectorConfig()
	cfg.Custom["rdap_url"] = srv.URL
	c := New(cfg, logx.NewSilent()).WithResolver(&testutil.FakeResolver{})
	defer c.Close()

	for i := 0; i < 2; i++ {
		_, err := c.Execute(context.Background(), domain.NewTarget("example.com"))
		testutil.AssertNoError(t, err, "execute")
	}
	testutil.AssertEqual(t, srv.Hits("/domain/example.com"), 1, "second call served from cache")
}

func TestCollector_NothingLearned(t *testing.T) {
	c := newTestCollector(t, map[string]testutil.Route{}, &testutil.FakeResolver{})

	out, err := c.Execute(context.Background(), domain.NewTarget("unknown-domain.test"))
	testutil.AssertNoError(t, err, "soft failure only")
	testutil.AssertLen(t, out.Records, 0, "no records without data")
	testutil.AssertLen(t, out.Errors, 1, "rdap error reported")
}

func TestCollector_InvalidTarget(t *testing.T) {
	c := newTestCollector(t, nil, &testutil.FakeResolver{})
	_, err := c.Execute(context.Background(), domain.NewTarget("not a domain"))
	testutil.AssertError(t, err, "invalid target is a hard error")
}

func TestContactRole(t *testing.T) {
	testutil.AssertEqual(t, contactRole([]string{"Administrative"}), "admin", "admin")
	testutil.AssertEqual(t, contactRole([]string{"abuse"}), "abuse", "abuse")
	testutil.AssertEqual(t, contactRole(nil), "unknown", "unknown")
}
