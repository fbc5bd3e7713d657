package handlers

import (
	"errors"
	"strings"
)

var errNotUniversityEmail = errors.New("Use your university email (e.g. *.edu or *.ac.*). Personal providers like Gmail, Outlook or Yahoo are not allowed")

var freeMailProviders = map[string]bool{
	"gmail.com": true, "googlemail.com": true,
	"yahoo.com": true, "ymail.com": true,
	"outlook.com": true, "hotmail.com": true, "live.com": true, "msn.com": true,
	"icloud.com": true, "me.com": true, "mac.com": true,
	"proton.me": true, "protonmail.com": true,
	"aol.com": true, "gmx.com": true, "yandex.com": true,
	"zoho.com": true, "mail.com": true,
}

// universityOf returns the institution domain of email, e.g. "kent.edu" for
// ab@cs.kent.edu or "cam.ac.uk" for ab123@cam.ac.uk. A non-empty allowed list
// replaces the heuristic: only those domains and their subdomains pass.
func universityOf(email string, allowed []string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", errNotUniversityEmail
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))

	if len(allowed) > 0 {
		for _, a := range allowed {
			if domain == a || strings.HasSuffix(domain, "."+a) {
				return a, nil
			}
		}
		return "", errNotUniversityEmail
	}

	if freeMailProviders[domain] {
		return "", errNotUniversityEmail
	}
	labels := strings.Split(domain, ".")
	for i := len(labels) - 1; i > 0; i-- {
		if labels[i] == "edu" || (labels[i] == "ac" && i < len(labels)-1) {
			if labels[i-1] == "" {
				break
			}
			return strings.Join(labels[i-1:], "."), nil
		}
	}
	return "", errNotUniversityEmail
}
