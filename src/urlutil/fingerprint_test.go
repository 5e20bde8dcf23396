package urlutil

import "testing"

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "fragment and case normalized",
			input:    "HTTPS://Example.com/Path#section",
			expected: "https://example.com/Path",
		},
		{
			name:     "query params sorted",
			input:    "https://example.com/search?b=2&a=1",
			expected: "https://example.com/search?a=1&b=2",
		},
		{
			name:     "tracking params stripped",
			input:    "https://example.com/page?utm_source=x&id=5",
			expected: "https://example.com/page?id=5",
		},
		{
			name:     "percent decoded path",
			input:    "https://example.com/a%20b",
			expected: "https://example.com/a b",
		},
		{
			name:     "root path keeps slash",
			input:    "https://example.com",
			expected: "https://example.com/",
		},
		{
			name:    "invalid URL errors",
			input:   "://bad",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fingerprint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fingerprint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got != tt.expected {
				t.Errorf("Fingerprint() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFingerprintIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/Path?b=2&a=1&utm_source=x#frag",
		"http://host.test/",
		"https://example.com/a%20b/c/",
	}
	for _, in := range inputs {
		once, err := Fingerprint(in)
		if err != nil {
			t.Fatalf("Fingerprint(%q): %v", in, err)
		}
		twice, err := Fingerprint(once)
		if err != nil {
			t.Fatalf("Fingerprint(%q): %v", once, err)
		}
		if once != twice {
			t.Errorf("Fingerprint not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}
