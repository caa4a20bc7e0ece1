package registry

import (
	"net/url"
	"strings"
)

// ExtractKno pulls the registry identifier out of a scanned QR payload.
// The payload is either the bare identifier or a registry URL carrying a kno query parameter.
func ExtractKno(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", false
	}

	if strings.Contains(payload, "://") || strings.Contains(strings.ToLower(payload), "kno=") {
		u, err := url.Parse(payload)
		if err != nil {
			return "", false
		}
		query := u.Query()
		if u.RawQuery == "" {
			query, _ = url.ParseQuery(payload)
		}
		for key, values := range query {
			if strings.EqualFold(key, "kno") && len(values) > 0 {
				if kno := strings.TrimSpace(values[0]); kno != "" {
					return kno, true
				}
			}
		}
		return "", false
	}

	if strings.ContainsAny(payload, " \t\r\n/") {
		return "", false
	}
	return payload, true
}
