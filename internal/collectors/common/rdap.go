// Package common holds the pieces shared by the built-in collectors: RDAP
// response decoding, the DNS resolver seam and config helpers.
package common

import (
	"context"
	"fmt"
	"strings"

	"argus/internal/platform/errors"
	"argus/internal/platform/httpclient"
)

// DefaultRDAPBase is the rdap.org bootstrap service; it redirects to the
// authoritative server for domains, IPs and ASNs.
const DefaultRDAPBase = "https://rdap.org"

// RDAPResponse is the subset of an RDAP object (domain or ip network) the
// collectors read.
type RDAPResponse struct {
	ObjectClassName string           `json:"objectClassName"`
	Handle          string           `json:"handle"`
	LDHName         string           `json:"ldhName"`
	Name            string           `json:"name"`
	Country         string           `json:"country"`
	StartAddress    string           `json:"startAddress"`
	EndAddress      string           `json:"endAddress"`
	Status          []string         `json:"status"`
	Entities        []RDAPEntity     `json:"entities"`
	Nameservers     []RDAPNameserver `json:"nameservers"`
	Events          []RDAPEvent      `json:"events"`
	Cidr0           []struct {
		V4Prefix string `json:"v4prefix"`
		V6Prefix string `json:"v6prefix"`
		Length   int    `json:"length"`
	} `json:"cidr0_cidrs"`
	SecureDNS struct {
		DelegationSigned bool `json:"delegationSigned"`
	} `json:"secureDNS"`
}

// RDAPEntity is a contact or registrar. VCardArray is jCard:
// ["vcard", [["fn", {}, "text", "John Doe"], ...]]
type RDAPEntity struct {
	Handle     string       `json:"handle"`
	Roles      []string     `json:"roles"`
	VCardArray []any        `json:"vcardArray"`
	Entities   []RDAPEntity `json:"entities"`
	PublicIDs  []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"publicIds"`
}

type RDAPNameserver struct {
	LDHName string `json:"ldhName"`
}

type RDAPEvent struct {
	EventAction string `json:"eventAction"`
	EventDate   string `json:"eventDate"`
}

// FetchRDAP queries base/kind/query, e.g. kind "domain" or "ip".
func FetchRDAP(ctx context.Context, client *httpclient.Client, base, kind, query string) (*RDAPResponse, error) {
	url := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), kind, query)

	var resp RDAPResponse
	if err := client.GetJSON(ctx, url, &resp); err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Wrapf(err, "%s not found in RDAP: %s", kind, query)
		}
		if errors.IsRateLimit(err) {
			return nil, errors.Wrap(err, "RDAP rate limit exceeded")
		}
		return nil, errors.Wrap(err, "failed to fetch RDAP data")
	}
	return &resp, nil
}

// HasRole reports whether the entity carries role (case-insensitive).
func (e RDAPEntity) HasRole(role string) bool {
	for _, r := range e.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// VCardField returns the first text value of field, or "".
func (e RDAPEntity) VCardField(field string) string {
	if len(e.VCardArray) < 2 {
		return ""
	}
	props, ok := e.VCardArray[1].([]any)
	if !ok {
		return ""
	}

	for _, item := range props {
		prop, ok := item.([]any)
		if !ok || len(prop) < 4 {
			continue
		}
		name, ok := prop[0].(string)
		if !ok || !strings.EqualFold(name, field) {
			continue
		}
		switch v := prop[3].(type) {
		case string:
			return strings.TrimSpace(v)
		case []any:
			// org y adr vienen como listas estructuradas
			var parts []string
			for _, p := range v {
				if s, ok := p.(string); ok && s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, " ")
		}
	}
	return ""
}

// Redacted reports contacts hidden for privacy (GDPR redaction).
func (e RDAPEntity) Redacted() bool {
	for _, f := range []string{"fn", "org", "email"} {
		v := strings.ToLower(e.VCardField(f))
		if strings.Contains(v, "redacted") || strings.Contains(v, "privacy") {
			return true
		}
	}
	return false
}

// Walk visits every entity, nested ones included.
func Walk(entities []RDAPEntity, fn func(RDAPEntity)) {
	for _, e := range entities {
		fn(e)
		Walk(e.Entities, fn)
	}
}

// Event returns the date of the first event whose action matches.
func (r *RDAPResponse) Event(actions ...string) string {
	for _, ev := range r.Events {
		for _, a := range actions {
			if strings.EqualFold(ev.EventAction, a) {
				return ev.EventDate
			}
		}
	}
	return ""
}

// CIDRs renders the cidr0 extension blocks.
func (r *RDAPResponse) CIDRs() []string {
	var out []string
	for _, c := range r.Cidr0 {
		prefix := c.V4Prefix
		if prefix == "" {
			prefix = c.V6Prefix
		}
		if prefix != "" {
			out = append(out, fmt.Sprintf("%s/%d", prefix, c.Length))
		}
	}
	return out
}
