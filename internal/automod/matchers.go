package automod

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	inviteRegex    = regexp.MustCompile(`(?i)discord(?:\.gg|(?:app)?\.com/invite)/[\w-]+`)
	urlRegex       = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?([a-zA-Z0-9][a-zA-Z0-9-]*(?:\.[a-zA-Z0-9-]+)+)`)
	maskedURLRegex = regexp.MustCompile(`\[.*?\]\(<?(https?://[^>)\s]+)>?\)`)
)

// ContainsInvite reports whether content holds a server invite link.
func ContainsInvite(content string) bool {
	return inviteRegex.MatchString(content)
}

// ExtractHosts returns the distinct lower-cased hostnames of bare and markdown-masked links in content.
func ExtractHosts(content string) []string {
	seen := make(map[string]struct{})

	var hosts []string

	add := func(text string) {
		for _, match := range urlRegex.FindAllStringSubmatch(text, -1) {
			host := strings.ToLower(strings.TrimSuffix(match[1], "."))
			if _, ok := seen[host]; ok {
				continue
			}

			seen[host] = struct{}{}
			hosts = append(hosts, host)
		}
	}

	for _, match := range maskedURLRegex.FindAllStringSubmatch(content, -1) {
		add(match[1])
	}

	add(content)

	return hosts
}

// wordStart and wordEnd stand in for \b, which only knows ASCII word characters.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

// WordPattern builds the case-insensitive pattern matching word and its common suffixes.
func WordPattern(word string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + wordStart + regexp.QuoteMeta(word) + `(?:ing|ed|s|[0-9]*)?` + wordEnd)
}

// ProhibitedLists is an immutable snapshot of the compiled prohibited words and hostnames.
type ProhibitedLists struct {
	words []*regexp.Regexp
	urls  []string
}

// NewProhibitedLists compiles words and normalizes urls. Words that fail to compile are logged and skipped.
func NewProhibitedLists(words, urls []string, logger *zap.Logger) *ProhibitedLists {
	lists := &ProhibitedLists{
		words: make([]*regexp.Regexp, 0, len(words)),
		urls:  make([]string, 0, len(urls)),
	}

	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}

		pattern, err := WordPattern(word)
		if err != nil {
			logger.Warn("Skipping invalid prohibited word", zap.String("word", word), zap.Error(err))
			continue
		}

		lists.words = append(lists.words, pattern)
	}

	for _, url := range urls {
		url = strings.ToLower(strings.TrimSpace(url))
		if url == "" {
			continue
		}

		lists.urls = append(lists.urls, url)
	}

	return lists
}

// MatchesWord reports whether content contains a prohibited word.
func (l *ProhibitedLists) MatchesWord(content string) bool {
	for _, pattern := range l.words {
		if pattern.MatchString(content) {
			return true
		}
	}

	return false
}

// MatchesURL reports whether host equals or is a subdomain of a prohibited hostname.
func (l *ProhibitedLists) MatchesURL(host string) bool {
	for _, url := range l.urls {
		if host == url || strings.HasSuffix(host, "."+url) {
			return true
		}
	}

	return false
}

// Len returns the number of compiled words and hostnames.
func (l *ProhibitedLists) Len() (words, urls int) {
	return len(l.words), len(l.urls)
}

// ListHolder publishes the current ProhibitedLists snapshot. Readers never block reloads.
type ListHolder struct {
	current atomic.Pointer[ProhibitedLists]
}

// NewListHolder returns a holder with an empty snapshot.
func NewListHolder() *ListHolder {
	h := &ListHolder{}
	h.current.Store(&ProhibitedLists{})

	return h
}

// Load returns the current snapshot.
func (h *ListHolder) Load() *ProhibitedLists {
	return h.current.Load()
}

// Swap replaces the snapshot.
func (h *ListHolder) Swap(lists *ProhibitedLists) {
	h.current.Store(lists)
}

// Reload fetches both lists from store and swaps in a new snapshot.
// The previous snapshot stays in place when either list cannot be loaded.
func (h *ListHolder) Reload(ctx context.Context, store Store, logger *zap.Logger) (*ProhibitedLists, error) {
	words, err := store.GetProhibitedWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prohibited words: %w", err)
	}

	urls, err := store.GetProhibitedURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prohibited urls: %w", err)
	}

	lists := NewProhibitedLists(words, urls, logger)
	h.Swap(lists)

	return lists, nil
}
