package middleware

import (
	"net/http/httptest"
	"testing"
)

func TestValidateRequestAuth(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AuthConfig
		header  string
		query   string
		wantErr bool
	}{
		{
			name: "disabled allows anything",
			cfg:  AuthConfig{Enabled: false},
		},
		{
			name:    "enabled with empty token rejects",
			cfg:     AuthConfig{Enabled: true, BearerToken: ""},
			header:  "Bearer whatever",
			wantErr: true,
		},
		{
			name:   "valid bearer header",
			cfg:    AuthConfig{Enabled: true, BearerToken: "secret"},
			header: "Bearer secret",
		},
		{
			name:    "wrong token",
			cfg:     AuthConfig{Enabled: true, BearerToken: "secret"},
			header:  "Bearer nope",
			wantErr: true,
		},
		{
			name:  "token via query for websocket",
			cfg:   AuthConfig{Enabled: true, BearerToken: "secret"},
			query: "secret",
		},
		{
			name:    "missing credentials",
			cfg:     AuthConfig{Enabled: true, BearerToken: "secret"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/ws"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest("GET", target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			err := ValidateRequestAuth(req, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequestAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "remote addr host part",
			remoteAddr: "10.0.0.5:43210",
			want:       "10.0.0.5",
		},
		{
			name:       "forwarded header wins",
			remoteAddr: "10.0.0.5:43210",
			forwarded:  "203.0.113.9",
			want:       "203.0.113.9",
		},
		{
			name:       "first forwarded entry",
			remoteAddr: "10.0.0.5:43210",
			forwarded:  "203.0.113.9, 10.0.0.1",
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)

	if !limiter.allow("10.0.0.1") || !limiter.allow("10.0.0.1") {
		t.Fatal("burst requests should be allowed")
	}
	if limiter.allow("10.0.0.1") {
		t.Error("request over burst should be rejected")
	}

	// Другой IP не делит bucket с первым
	if !limiter.allow("10.0.0.2") {
		t.Error("independent IP should have its own bucket")
	}
}
