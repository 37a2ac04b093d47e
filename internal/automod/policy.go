package automod

import (
	"errors"
	"fmt"
	"time"

	"github.com/daggerwin/automod/internal/database/types/enum"
	"github.com/daggerwin/automod/internal/setup/config"
)

var (
	// ErrUnknownPolicy is returned when a policy name cannot be parsed.
	ErrUnknownPolicy = errors.New("unknown policy")
	// ErrInvalidPolicy is returned when a policy fails validation.
	ErrInvalidPolicy = errors.New("invalid policy")
)

// PolicyType is a detection category. Declaration order is evaluation order.
type PolicyType int

const (
	InviteLinks PolicyType = iota
	AntiSpam
	ProhibitedWords
	MaliciousLinks
	ProhibitedURLs

	policyTypeCount
)

// PolicyTypes lists every policy type in evaluation order.
var PolicyTypes = []PolicyType{InviteLinks, AntiSpam, ProhibitedWords, MaliciousLinks, ProhibitedURLs}

var policyNames = [policyTypeCount]string{
	InviteLinks:     "invite_links",
	AntiSpam:        "anti_spam",
	ProhibitedWords: "prohibited_words",
	MaliciousLinks:  "malicious_links",
	ProhibitedURLs:  "prohibited_urls",
}

// String returns the configuration key of the policy type.
func (p PolicyType) String() string {
	if p < 0 || p >= policyTypeCount {
		return fmt.Sprintf("PolicyType(%d)", int(p))
	}

	return policyNames[p]
}

// ParsePolicyType converts a configuration key into a policy type.
func ParsePolicyType(s string) (PolicyType, error) {
	for i, name := range policyNames {
		if name == s {
			return PolicyType(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Policy is a single automod rule.
type Policy struct {
	Enabled       bool
	Type          PolicyType
	Action        enum.ActionKind
	Reason        string
	WarnThreshold uint32
	MuteDuration  time.Duration
}

// Validate checks the threshold and mute duration constraints.
func (p Policy) Validate() error {
	if p.WarnThreshold < 1 {
		return fmt.Errorf("%w: %s warn threshold must be at least 1", ErrInvalidPolicy, p.Type)
	}

	if p.Action == enum.ActionMute && p.MuteDuration <= 0 {
		return fmt.Errorf("%w: %s mutes require a positive duration", ErrInvalidPolicy, p.Type)
	}

	return nil
}

// PolicySet is an immutable snapshot of the configured policies indexed by type.
type PolicySet struct {
	policies [policyTypeCount]Policy
}

// DefaultPolicies returns the built-in rule set.
func DefaultPolicies() *PolicySet {
	return &PolicySet{policies: [policyTypeCount]Policy{
		InviteLinks: {
			Enabled: true, Type: InviteLinks, Action: enum.ActionBan,
			Reason: "Posting invite link", WarnThreshold: 2,
		},
		AntiSpam: {
			Enabled: true, Type: AntiSpam, Action: enum.ActionMute,
			Reason: "Spam detection", WarnThreshold: 3, MuteDuration: time.Hour,
		},
		ProhibitedWords: {
			Enabled: true, Type: ProhibitedWords, Action: enum.ActionMute,
			Reason: "Use of prohibited words", WarnThreshold: 2, MuteDuration: 30 * time.Minute,
		},
		MaliciousLinks: {
			Enabled: true, Type: MaliciousLinks, Action: enum.ActionBan,
			Reason: "Posting a malicious link", WarnThreshold: 2,
		},
		ProhibitedURLs: {
			Enabled: true, Type: ProhibitedURLs, Action: enum.ActionMute,
			Reason: "Posting a banned link", WarnThreshold: 2, MuteDuration: 30 * time.Minute,
		},
	}}
}

// NewPolicySet builds a set from the defaults with overrides applied. Unknown keys and invalid results are rejected.
func NewPolicySet(overrides map[string]config.PolicyOverride) (*PolicySet, error) {
	set := DefaultPolicies()

	for name, override := range overrides {
		policyType, err := ParsePolicyType(name)
		if err != nil {
			return nil, err
		}

		policy := set.policies[policyType]

		if override.Enabled != nil {
			policy.Enabled = *override.Enabled
		}

		if override.Action != "" {
			action, err := enum.ParseActionKind(override.Action)
			if err != nil {
				return nil, fmt.Errorf("policy %s: %w", name, err)
			}

			policy.Action = action
		}

		if override.Reason != "" {
			policy.Reason = override.Reason
		}

		if override.WarnThreshold != 0 {
			if override.WarnThreshold < 0 {
				return nil, fmt.Errorf("%w: %s warn threshold must be at least 1", ErrInvalidPolicy, name)
			}

			policy.WarnThreshold = uint32(override.WarnThreshold)
		}

		if override.MuteDuration != 0 {
			policy.MuteDuration = time.Duration(override.MuteDuration) * time.Second
		}

		set.policies[policyType] = policy
	}

	for _, policy := range set.policies {
		if err := policy.Validate(); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// Get returns the policy for a type.
func (s *PolicySet) Get(policyType PolicyType) Policy {
	return s.policies[policyType]
}

// Enabled reports whether the policy for a type is active.
func (s *PolicySet) Enabled(policyType PolicyType) bool {
	return s.policies[policyType].Enabled
}

// With returns a copy of the set with one policy replaced.
func (s *PolicySet) With(policy Policy) *PolicySet {
	next := *s
	next.policies[policy.Type] = policy

	return &next
}
