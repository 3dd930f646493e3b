package emailcheck

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/logx"
	"argus/internal/testutil"
)

func gravatarPath(address string) string {
	sum := md5.Sum([]byte(address))
	return "/avatar/" + hex.EncodeToString(sum[:])
}

func newTestCollector(t *testing.T, routes map[string]testutil.Route, res *testutil.FakeResolver) *Collector {
	t.Helper()
	srv := testutil.NewStubServer(t, routes)
	cfg := ports.DefaultCollectorConfig()
	cfg.Custom["gravatar_url"] = srv.URL + "/avatar"
	return New(cfg, logx.NewSilent()).WithResolver(res)
}

func TestCollector_Execute(t *testing.T) {
	res := &testutil.FakeResolver{
		MX: map[string][]*net.MX{"example.com": {
			{Host: "mx2.example.com.", Pref: 20},
			{Host: "mx1.example.com.", Pref: 10},
		}},
		TXT: map[string][]string{
			"example.com":        {"v=spf1 include:_spf.example.com -all"},
			"_dmarc.example.com": {"v=DMARC1; p=reject"},
		},
	}
	c := newTestCollector(t, map[string]testutil.Route{
		gravatarPath("jane@example.com"): {Status: 200},
	}, res)

	out, err := c.Execute(context.Background(), domain.NewTarget("Jane <Jane@Example.com>"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertLen(t, out.Errors, 0, "no errors")

	rec := out.Records[0]
	testutil.AssertEqual(t, rec.Value, "jane@example.com", "normalised address")
	testutil.AssertEqual(t, rec.Metadata["mx_valid"], true, "mx valid")
	testutil.AssertDeepEqual(t, rec.Metadata["mx_hosts"], []string{"mx1.example.com", "mx2.example.com"}, "ordered by preference")
	testutil.AssertEqual(t, rec.Metadata["dmarc"], "v=DMARC1; p=reject", "dmarc")
	testutil.AssertEqual(t, rec.Metadata["gravatar"], true, "gravatar found")
	testutil.AssertEqual(t, rec.Metadata["disposable"], false, "not disposable")

	// email, dominio, 2 MX y avatar
	testutil.AssertLen(t, out.Records, 5, "records")
	testutil.AssertEqual(t, out.Relationships[0].RelationshipType, domain.RelEmailDomain, "email_domain first")
}

func TestCollector_ImplicitMX(t *testing.T) {
	res := &testutil.FakeResolver{Hosts: map[string][]string{"tiny.example": {"192.0.2.1"}}}
	c := newTestCollector(t, nil, res)

	out, err := c.Execute(context.Background(), domain.NewTarget("ops@tiny.example"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertEqual(t, out.Records[0].Metadata["mx_valid"], true, "A record acts as implicit MX")
	testutil.AssertEqual(t, out.Records[0].Metadata["implicit_mx"], true, "flagged")
	testutil.AssertEqual(t, out.Records[0].Metadata["gravatar"], false, "404 means no avatar")
}

func TestCollector_DNSFailureIsSoft(t *testing.T) {
	c := newTestCollector(t, nil, &testutil.FakeResolver{Err: errors.New("server misbehaving")})

	out, err := c.Execute(context.Background(), domain.NewTarget("a@mailinator.com"))
	testutil.AssertNoError(t, err, "execute")
	testutil.AssertLen(t, out.Errors, 1, "mx error reported")
	testutil.AssertEqual(t, out.Records[0].Metadata["disposable"], true, "disposable provider")
}

func TestParseAddress(t *testing.T) {
	_, err := parseAddress("not-an-email")
	testutil.AssertError(t, err, "invalid")

	got, err := parseAddress("  USER@Example.COM ")
	testutil.AssertNoError(t, err, "valid")
	testutil.AssertEqual(t, got, "user@example.com", "lowercased")
}
