// internal/core/usecases/router_test.go
package usecases

import (
	"errors"
	"testing"

	"argus/internal/core/domain"
	"argus/internal/testutil"
)

func TestCollectorRouter_Route(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		explicit   []string
		darkweb    bool
		media      bool
		want       []string
		wantType   domain.TargetType
		wantExplic bool
	}{
		{name: "domain", target: "example.com", want: []string{"domain", "web", "certs"}, wantType: domain.TargetDomain},
		{name: "ip", target: "8.8.8.8", want: []string{"ip"}, wantType: domain.TargetIP},
		{name: "ipv6", target: "2001:db8::1", want: []string{"ip"}, wantType: domain.TargetIP},
		{name: "email", target: "john@example.com", want: []string{"email"}, wantType: domain.TargetEmail},
		{name: "url", target: "https://example.com/about", want: []string{"web"}, wantType: domain.TargetURL},
		{name: "username", target: "octocat", want: []string{"social"}, wantType: domain.TargetUsername},
		{name: "coordinates", target: "40.4168,-3.7038", want: []string{"geo"}, wantType: domain.TargetCoordinates},
		{name: "darkweb appended", target: "example.com", darkweb: true, want: []string{"domain", "web", "certs", "darkweb"}, wantType: domain.TargetDomain},
		{name: "media appended", target: "octocat", media: true, want: []string{"social", "media"}, wantType: domain.TargetUsername},
		{
			name:       "explicit replaces inferred",
			target:     "example.com",
			explicit:   []string{" WEB ", "web", "ip"},
			want:       []string{"web", "ip"},
			wantType:   domain.TargetDomain,
			wantExplic: true,
		},
	}

	router := NewCollectorRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := router.Route(tt.target, tt.explicit, tt.darkweb, tt.media)
			testutil.AssertNoError(t, err, "route")
			testutil.AssertDeepEqual(t, res.Collectors, tt.want, "collectors")
			testutil.AssertEqual(t, res.Target.Type, tt.wantType, "target type")
			testutil.AssertEqual(t, res.Explicit, tt.wantExplic, "explicit")
		})
	}
}

func TestCollectorRouter_EmptyTarget(t *testing.T) {
	router := NewCollectorRouter()

	cases := []struct {
		name          string
		target        string
		explicit      []string
		darkweb, media bool
	}{
		{name: "empty", target: ""},
		{name: "blank with darkweb", target: "  ", darkweb: true},
		{name: "empty with media", target: "", media: true},
		{name: "blank with explicit collectors", target: " ", explicit: []string{"web"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := router.Route(tc.target, tc.explicit, tc.darkweb, tc.media)
			testutil.AssertError(t, err, "blank target must fail")
			testutil.AssertTrue(t, errors.Is(err, domain.ErrNoCollectorFound), "sentinel")
			testutil.AssertLen(t, res.Collectors, 0, "no collectors")

			var ncf *domain.NoCollectorFoundError
			testutil.AssertTrue(t, errors.As(err, &ncf), "typed error")
			testutil.AssertEqual(t, ncf.TargetType, domain.TargetUnknown, "target type")
		})
	}
}

func TestCollectorRouter_Totality(t *testing.T) {
	router := NewCollectorRouter()
	targets := []string{"example.com", "1.1.1.1", "a@b.io", "http://x.io", "someone", "0,0", "", " ", "free text with spaces"}

	for _, target := range targets {
		res, err := router.Route(target, nil, false, false)
		if err != nil {
			testutil.AssertTrue(t, errors.Is(err, domain.ErrNoCollectorFound), "only NoCollectorFound for "+target)
			continue
		}
		testutil.AssertTrue(t, len(res.Collectors) > 0, "non-empty set for "+target)
	}
}

func TestCollectorRouter_SetRoute(t *testing.T) {
	router := NewCollectorRouter()
	router.SetRoute(domain.TargetIP, []string{"IP", "shodan"})

	res, err := router.Route("9.9.9.9", nil, false, false)
	testutil.AssertNoError(t, err, "route")
	testutil.AssertDeepEqual(t, res.Collectors, []string{"ip", "shodan"}, "custom route")

	other := NewCollectorRouter()
	res, _ = other.Route("9.9.9.9", nil, false, false)
	testutil.AssertDeepEqual(t, res.Collectors, []string{"ip"}, "default table untouched")
}
