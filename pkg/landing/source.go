package landing

import (
	"net/url"
	"strings"
)

// TrafficSource labels where a visitor came from: utm_source[/utm_medium],
// then well-known referrer hosts, then the referrer host itself, else "direct".
func TrafficSource(pageURL, referrer string) string {
	if u, err := url.Parse(pageURL); err == nil {
		q := u.Query()
		if src := strings.TrimSpace(q.Get("utm_source")); src != "" {
			if medium := strings.TrimSpace(q.Get("utm_medium")); medium != "" {
				return src + "/" + medium
			}
			return src
		}
	}
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return "direct"
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return "referrer"
	}
	host := strings.ToLower(u.Hostname())
	for _, known := range []string{"google", "facebook", "whatsapp"} {
		if strings.Contains(host, known) {
			return known
		}
	}
	return host
}
