package wordlist_test

import (
	"testing"

	"github.com/daggerwin/automod/internal/wordlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueTypes(issues []wordlist.Issue) []string {
	types := make([]string, 0, len(issues))
	for _, issue := range issues {
		types = append(types, issue.Type)
	}

	return types
}

func TestValidateListsEmpty(t *testing.T) {
	t.Parallel()

	issues := wordlist.ValidateLists(&wordlist.Lists{})
	require.Len(t, issues, 1)
	assert.Equal(t, "empty_lists", issues[0].Type)

	issues = wordlist.ValidateLists(nil)
	require.Len(t, issues, 1)
	assert.Equal(t, -1, issues[0].Location)
}

func TestValidateListsClean(t *testing.T) {
	t.Parallel()

	issues := wordlist.ValidateLists(&wordlist.Lists{
		Words: []string{"badword", "slur"},
		URLs:  []string{"evil.example", "scam.test"},
	})

	assert.Empty(t, issues)
}

func TestFieldValidator(t *testing.T) {
	t.Parallel()

	issues := wordlist.NewFieldValidator().Validate(&wordlist.Lists{
		Words: []string{"ok", "  ", " padded"},
		URLs:  []string{"", "fine.example"},
	})

	assert.Equal(t, []string{"empty_word", "padded_word", "empty_url"}, issueTypes(issues))
	assert.Equal(t, 1, issues[0].Location)
	assert.Equal(t, 0, issues[2].Location)
}

func TestDuplicateValidator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lists wordlist.Lists
		want  []string
		terms []string
	}{
		{
			name:  "case insensitive duplicate word",
			lists: wordlist.Lists{Words: []string{"Spam", "spam"}},
			want:  []string{"exact_duplicate"},
			terms: []string{"spam"},
		},
		{
			name:  "duplicate url",
			lists: wordlist.Lists{URLs: []string{"evil.example", "EVIL.example"}},
			want:  []string{"exact_duplicate"},
			terms: []string{"EVIL.example"},
		},
		{
			name:  "suffix already matched",
			lists: wordlist.Lists{Words: []string{"scams", "scam"}},
			want:  []string{"pattern_redundancy"},
			terms: []string{"scams"},
		},
		{
			name:  "phrase containing a word",
			lists: wordlist.Lists{Words: []string{"free nitro here", "nitro"}},
			want:  []string{"pattern_redundancy"},
			terms: []string{"free nitro here"},
		},
		{
			name:  "longer word is not covered",
			lists: wordlist.Lists{Words: []string{"scam", "scammer"}},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			issues := wordlist.NewDuplicateValidator().Validate(&tt.lists)
			assert.Equal(t, tt.want, issueTypes(issues))

			for i, term := range tt.terms {
				assert.Equal(t, term, issues[i].Term)
			}
		})
	}
}

func TestHostValidator(t *testing.T) {
	t.Parallel()

	issues := wordlist.NewHostValidator().Validate(&wordlist.Lists{
		URLs: []string{
			"https://evil.example/login",
			"scam.test",
			"cdn.login.scam.test",
			"example.com:8080",
			"other.test",
		},
	})

	require.Equal(t, []string{"not_a_hostname", "not_a_hostname", "subdomain_redundancy"}, issueTypes(issues))
	assert.Equal(t, 0, issues[0].Location)
	assert.Equal(t, 3, issues[1].Location)
	assert.Equal(t, "cdn.login.scam.test", issues[2].Term)
	assert.Equal(t, 2, issues[2].Location)
}
