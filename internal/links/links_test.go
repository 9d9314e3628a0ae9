package links

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestBuilder_URLs(t *testing.T) {
	b := New("http://api.test/")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"snippet list", b.SnippetList(), "http://api.test/snippets/"},
		{"snippet detail", b.SnippetURL(7), "http://api.test/snippets/7/"},
		{"snippet highlight", b.SnippetHighlightURL(7), "http://api.test/snippets/7/highlight/"},
		{"user list", b.UserList(), "http://api.test/users/"},
		{"user detail", b.UserURL(42), "http://api.test/users/42/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestBuilder_BaseWithPathPrefix(t *testing.T) {
	b := New("https://example.com/api")

	if got, want := b.SnippetURL(1), "https://example.com/api/snippets/1/"; got != want {
		t.Errorf("SnippetURL() = %q, want %q", got, want)
	}
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() *Builder
		wantBase string
	}{
		{
			name: "plain http uses request host",
			setup: func() *Builder {
				r := httptest.NewRequest("GET", "http://snippets.local:8080/snippets/", nil)
				return FromRequest(r, "")
			},
			wantBase: "http://snippets.local:8080",
		},
		{
			name: "tls request uses https",
			setup: func() *Builder {
				r := httptest.NewRequest("GET", "https://snippets.local/snippets/", nil)
				r.TLS = &tls.ConnectionState{}
				return FromRequest(r, "")
			},
			wantBase: "https://snippets.local",
		},
		{
			name: "forwarded proto wins",
			setup: func() *Builder {
				r := httptest.NewRequest("GET", "http://snippets.local/snippets/", nil)
				r.Header.Set("X-Forwarded-Proto", "HTTPS, http")
				return FromRequest(r, "")
			},
			wantBase: "https://snippets.local",
		},
		{
			name: "configured override ignores request",
			setup: func() *Builder {
				r := httptest.NewRequest("GET", "http://internal:9000/", nil)
				return FromRequest(r, "https://public.example.com/")
			},
			wantBase: "https://public.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.setup().Base(); got != tt.wantBase {
				t.Errorf("Base() = %q, want %q", got, tt.wantBase)
			}
		})
	}
}
