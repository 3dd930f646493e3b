package urlfilter

import (
	"net/url"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTPS://Example.COM:443/a?utm_source=x&b=2&a=1#frag", "https://example.com/a?a=1&b=2"},
		{"http://example.com", "http://example.com/"},
		{"http://example.com:8080/x?fbclid=1", "http://example.com:8080/x"},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSignature(t *testing.T) {
	u, _ := url.Parse("https://example.com/users/123/posts/2024-01-02?id=5")
	if got, want := Signature(u), "example.com/users/{id}/posts/{date}?id"; got != want {
		t.Errorf("Signature = %q, want %q", got, want)
	}

	u, _ = url.Parse("https://example.com/f/550e8400-e29b-41d4-a716-446655440000")
	if got, want := Signature(u), "example.com/f/{uuid}"; got != want {
		t.Errorf("Signature = %q, want %q", got, want)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		path    string
		score   int
		reasons []string
	}{
		{"/admin/login", WeightAdminPath + WeightAuthPath, []string{"admin_path", "auth_path"}},
		{"/static/logo.png", WeightAssetDir + WeightStaticAsset, []string{"asset_dir", "static_asset"}},
		{"/list?page=2", WeightPaginationOnly, []string{"pagination"}},
		{"/report.pdf", WeightDocument, []string{"document"}},
		{"/.git/config", WeightRepository, []string{"repository"}},
		{"/", 0, nil},
	}
	for _, tt := range tests {
		u, _ := url.Parse("https://example.com" + tt.path)
		got := Score(u)
		if got.Score != tt.score {
			t.Errorf("Score(%s) = %d, want %d", tt.path, got.Score, tt.score)
		}
		if !reflect.DeepEqual(got.Reasons, tt.reasons) {
			t.Errorf("Score(%s) reasons = %v, want %v", tt.path, got.Reasons, tt.reasons)
		}
	}
}

func TestFilter(t *testing.T) {
	in := []string{
		"https://ex.com/a#x",
		"https://ex.com/a",
		"https://ex.com/item/1",
		"https://ex.com/item/2",
		"https://ex.com/item/3",
		"https://ex.com/item/4",
		"https://ex.com/contact",
		"mailto:someone@ex.com",
		"https://ex.com/static/a.css",
	}

	got := Filter(in, Options{MaxPerSignature: 2})
	urls := make([]string, len(got))
	for i, s := range got {
		urls[i] = s.URL
	}
	want := []string{
		"https://ex.com/contact",
		"https://ex.com/a",
		"https://ex.com/item/1",
		"https://ex.com/item/2",
		"https://ex.com/static/a.css",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("Filter = %v, want %v", urls, want)
	}

	zero := 0
	if got := Filter(in, Options{MaxPerSignature: 2, MinScore: &zero}); len(got) != 4 {
		t.Errorf("MinScore: got %d urls, want 4", len(got))
	}
	got = Filter(in, Options{Limit: 2})
	if len(got) != 2 || got[0].URL != "https://ex.com/contact" {
		t.Errorf("Limit: got %+v", got)
	}
}
