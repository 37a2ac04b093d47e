package wordlist

import (
	"fmt"
	"strings"
)

// HostValidator checks that url entries are bare hostnames.
type HostValidator struct{}

// NewHostValidator creates a new HostValidator instance.
func NewHostValidator() *HostValidator {
	return &HostValidator{}
}

// Validate flags urls that can never match and hostnames covered by a parent domain.
func (v *HostValidator) Validate(lists *Lists) []Issue {
	var issues []Issue

	type indexedHost struct {
		host  string
		index int
	}

	hosts := make(map[string]struct{}, len(lists.URLs))
	ordered := make([]indexedHost, 0, len(lists.URLs))

	for i, url := range lists.URLs {
		host := strings.ToLower(strings.TrimSpace(url))
		if host == "" {
			continue
		}

		if strings.Contains(host, "://") || strings.ContainsAny(host, "/?#:") {
			issues = append(issues, Issue{
				Type:        "not_a_hostname",
				Description: fmt.Sprintf("URL entry '%s' must be a bare hostname without scheme, port or path", url),
				Term:        url,
				Location:    i,
			})

			continue
		}

		if _, exists := hosts[host]; !exists {
			hosts[host] = struct{}{}
			ordered = append(ordered, indexedHost{host, i})
		}
	}

	for _, entry := range ordered {
		for parent := parentDomain(entry.host); parent != ""; parent = parentDomain(parent) {
			if _, covered := hosts[parent]; covered {
				issues = append(issues, Issue{
					Type:        "subdomain_redundancy",
					Description: fmt.Sprintf("Hostname '%s' is redundant because '%s' already covers it", entry.host, parent),
					Term:        entry.host,
					Location:    entry.index,
				})

				break
			}
		}
	}

	return issues
}

// parentDomain strips the leftmost label, returning "" once a single label remains.
func parentDomain(host string) string {
	_, parent, found := strings.Cut(host, ".")
	if !found || !strings.Contains(parent, ".") {
		return ""
	}

	return parent
}
