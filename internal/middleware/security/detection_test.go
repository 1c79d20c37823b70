package security

import (
	"net/http/httptest"
	"testing"
)

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector()

	cases := map[string]struct {
		target     string
		userAgent  string
		suspicious bool
	}{
		"plain page":          {target: "/", suspicious: false},
		"rules page":          {target: "/rules", suspicious: false},
		"traversal query":     {target: "/?file=../../etc/passwd", suspicious: true},
		"php probe":           {target: "/index.php", suspicious: true},
		"env probe":           {target: "/.env", suspicious: true},
		"xss query":           {target: "/?q=<script>alert(1)</script>", suspicious: true},
		"scanner user agent":  {target: "/", userAgent: "sqlmap/1.7", suspicious: true},
		"crawler user agent":  {target: "/", userAgent: "somebot/2.0", suspicious: true},
		"curl stays welcome":  {target: "/rules/export", userAgent: "curl/8.4.0", suspicious: false},
		"browser user agent":  {target: "/", userAgent: "Mozilla/5.0", suspicious: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.target, nil)
			if tc.userAgent != "" {
				req.Header.Set("User-Agent", tc.userAgent)
			}
			if got := d.DetectSuspiciousRequest(req); got != tc.suspicious {
				t.Fatalf("DetectSuspiciousRequest(%q, agent %q) = %v, want %v",
					tc.target, tc.userAgent, got, tc.suspicious)
			}
		})
	}
}
