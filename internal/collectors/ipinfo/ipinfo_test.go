package ipinfo

import (
	"context"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
	"argus/internal/testutil"
)

const rdapIP = `{
  "objectClassName": "ip network",
  "handle": "NET-93-184-216-0-1",
  "name": "EDGECAST-NETBLK-03",
  "country": "us",
  "startAddress": "93.184.216.0",
  "endAddress": "93.184.216.255",
  "cidr0_cidrs": [{"v4prefix": "93.184.216.0", "length": 24}],
  "entities": [
    {"roles": ["registrant"], "vcardArray": ["vcard", [["fn", {}, "text", "Edgecast Inc."]]],
     "entities": [{"roles": ["abuse"], "vcardArray": ["vcard", [["email", {}, "text", "abuse@edgecast.com"]]]}]}
  ]
}`

func newTestCollector(t *testing.T, routes map[string]testutil.Route, res *testutil.FakeResolver) (*Collector, *testutil.StubServer) {
	t.Helper()
	srv := testutil.NewStubServer(t, routes)
	cfg := ports.DefaultCollectorConfig()
	cfg.Custom["rdap_url"] = srv.URL
	c := New(cfg, logx.NewSilent()).WithResolver(res)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

func TestCollector_Execute(t *testing.T) {
	c, _ := newTestCollector(t, map[string]testutil.Route{
		"/ip/93.184.216.34": {Body: rdapIP},
	}, &testutil.FakeResolver{Addr: map[string][]string{"93.184.216.34": {"edge.example.net."}}})

	out, err := c.Execute(context.Background(), domain.NewTarget("93.184.216.34"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertLen(t, out.Errors, 0, "no errors")

	ip := out.Records[0]
	testutil.AssertEqual(t, ip.Type, domain.EntityIP, "ip first")
	testutil.AssertEqual(t, ip.Metadata["country"], "US", "country uppercased")
	testutil.AssertEqual(t, ip.Metadata["network_name"], "EDGECAST-NETBLK-03", "network")
	testutil.AssertDeepEqual(t, ip.Metadata["cidr"], []string{"93.184.216.0/24"}, "cidr")
	testutil.AssertDeepEqual(t, ip.Metadata["ptr"], []string{"edge.example.net"}, "ptr")

	types := map[domain.EntityType]int{}
	for _, r := range out.Records {
		types[r.Type]++
	}
	testutil.AssertEqual(t, types[domain.EntityDomain], 1, "ptr domain")
	testutil.AssertEqual(t, types[domain.EntityOrganization], 1, "registrant org")
	testutil.AssertEqual(t, types[domain.EntityEmail], 1, "nested abuse contact")
	testutil.AssertLen(t, out.Relationships, 3, "resolves_to, belongs_to, has_contact")
}

func TestCollector_PrivateSkipsRDAP(t *testing.T) {
	c, srv := newTestCollector(t, map[string]testutil.Route{}, &testutil.FakeResolver{})

	out, err := c.Execute(context.Background(), domain.NewTarget("10.1.2.3"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertEqual(t, out.Records[0].Metadata["private"], true, "private flagged")
	testutil.AssertEqual(t, srv.Hits("/ip/10.1.2.3"), 0, "no RDAP for private space")
	testutil.AssertLen(t, out.Errors, 0, "no errors")
}

func TestCollector_MappedIPv4(t *testing.T) {
	c, _ := newTestCollector(t, map[string]testutil.Route{}, &testutil.FakeResolver{})

	out, err := c.Execute(context.Background(), domain.NewTarget("::ffff:192.168.0.1"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertEqual(t, out.Records[0].Value, "192.168.0.1", "unmapped")
}

func TestCollector_InvalidTarget(t *testing.T) {
	c, _ := newTestCollector(t, nil, &testutil.FakeResolver{})
	_, err := c.Execute(context.Background(), domain.NewTarget("999.1.1.1"))
	testutil.AssertError(t, err, "invalid address")
}
