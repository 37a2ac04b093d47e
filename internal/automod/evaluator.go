package automod

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// DomainChecker answers malicious domain lookups.
type DomainChecker interface {
	EnsureFresh(ctx context.Context)
	Contains(ctx context.Context, hosts []string) (string, bool, error)
}

// Evaluator matches messages against the enabled policies in priority order.
type Evaluator struct {
	policies   *PolicySet
	tracker    *Tracker
	domains    DomainChecker
	lists      *ListHolder
	staffRoles map[snowflake.ID]struct{}
	logger     *zap.Logger
}

// NewEvaluator creates an evaluator. Members holding any of staffRoles are never checked.
func NewEvaluator(
	policies *PolicySet, tracker *Tracker, domains DomainChecker, lists *ListHolder,
	staffRoles []snowflake.ID, logger *zap.Logger,
) *Evaluator {
	roles := make(map[snowflake.ID]struct{}, len(staffRoles))
	for _, role := range staffRoles {
		roles[role] = struct{}{}
	}

	return &Evaluator{
		policies:   policies,
		tracker:    tracker,
		domains:    domains,
		lists:      lists,
		staffRoles: roles,
		logger:     logger.Named("evaluator"),
	}
}

// Evaluate returns the first violated policy. The matched type's stale warnings are expired before returning.
func (e *Evaluator) Evaluate(ctx context.Context, msg *Message) (Policy, bool) {
	if e.isStaff(msg) {
		return Policy{}, false
	}

	policyType, ok := e.match(ctx, msg, true)
	if !ok {
		return Policy{}, false
	}

	if err := e.tracker.ExpireWarnings(ctx, uint64(msg.AuthorID), policyType, msg.CreatedAt.Unix()); err != nil {
		e.logger.Warn("Failed to expire stale warnings",
			zap.Uint64("userID", uint64(msg.AuthorID)),
			zap.Stringer("policy", policyType),
			zap.Error(err))
	}

	return e.policies.Get(policyType), true
}

// Check matches content against the content-only policies without touching user state.
func (e *Evaluator) Check(ctx context.Context, content string) (Policy, bool) {
	policyType, ok := e.match(ctx, &Message{Content: content}, false)
	if !ok {
		return Policy{}, false
	}

	return e.policies.Get(policyType), true
}

func (e *Evaluator) match(ctx context.Context, msg *Message, withSpam bool) (PolicyType, bool) {
	var hosts []string

	for _, policyType := range PolicyTypes {
		if !e.policies.Enabled(policyType) {
			continue
		}

		var matched bool

		switch policyType {
		case InviteLinks:
			matched = ContainsInvite(msg.Content)
		case AntiSpam:
			matched = withSpam && e.isSpam(ctx, msg)
		case ProhibitedWords:
			matched = e.lists.Load().MatchesWord(msg.Content)
		case MaliciousLinks:
			if hosts == nil {
				hosts = ExtractHosts(msg.Content)
			}

			matched = e.isMalicious(ctx, hosts)
		case ProhibitedURLs:
			if hosts == nil {
				hosts = ExtractHosts(msg.Content)
			}

			lists := e.lists.Load()
			for _, host := range hosts {
				if lists.MatchesURL(host) {
					matched = true
					break
				}
			}
		}

		if matched {
			return policyType, true
		}
	}

	return 0, false
}

func (e *Evaluator) isStaff(msg *Message) bool {
	for _, role := range msg.RoleIDs {
		if _, ok := e.staffRoles[role]; ok {
			return true
		}
	}

	return false
}

func (e *Evaluator) isSpam(ctx context.Context, msg *Message) bool {
	spam, err := e.tracker.RecordMessage(ctx, uint64(msg.AuthorID), msg.CreatedAt.Unix())
	if err != nil {
		e.logger.Warn("Spam check skipped",
			zap.Uint64("userID", uint64(msg.AuthorID)),
			zap.Error(err))

		return false
	}

	return spam
}

func (e *Evaluator) isMalicious(ctx context.Context, hosts []string) bool {
	if len(hosts) == 0 {
		return false
	}

	e.domains.EnsureFresh(ctx)

	host, found, err := e.domains.Contains(ctx, hosts)
	if err != nil {
		e.logger.Warn("Malicious link check skipped", zap.Error(err))
		return false
	}

	if found {
		e.logger.Debug("Matched malicious domain", zap.String("host", host))
	}

	return found
}
