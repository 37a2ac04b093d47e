package automod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/daggerwin/automod/internal/database/types"
	"github.com/daggerwin/automod/internal/database/types/enum"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// ErrCaseIDTaken is returned when the next case id is already stored.
var ErrCaseIDTaken = errors.New("case id already taken")

// replyTexts are the warnings posted in the channel after a violation.
var replyTexts = [policyTypeCount]string{
	InviteLinks:     "Discord invite links aren't allowed in this server!",
	AntiSpam:        "Stop spamming!",
	ProhibitedWords: "Watch your language!",
	MaliciousLinks:  "Phishing links aren't allowed in this server!",
	ProhibitedURLs:  "That link is currently banned in this server!",
}

// Moderator identifies the account recorded as the moderator on automated cases.
type Moderator struct {
	ID   snowflake.ID
	Name string
}

// Outcome summarizes one handled violation.
type Outcome struct {
	Warnings uint32
	Case     *types.Case
}

// Enforcer turns violations into warnings, cases and platform actions.
type Enforcer struct {
	store      Store
	gateway    Gateway
	tracker    *Tracker
	moderator  func() Moderator
	replyDelay time.Duration
	logger     *zap.Logger
	metrics    *Metrics
	pending    conc.WaitGroup
	stop       chan struct{}
	stopOnce   sync.Once
}

// EnforcerOption customizes an Enforcer.
type EnforcerOption func(*Enforcer)

// WithEnforcerMetrics records actions and failures.
func WithEnforcerMetrics(metrics *Metrics) EnforcerOption {
	return func(e *Enforcer) {
		e.metrics = metrics
	}
}

// WithModerator sets the identity stored on created cases.
func WithModerator(moderator func() Moderator) EnforcerOption {
	return func(e *Enforcer) {
		e.moderator = moderator
	}
}

// NewEnforcer creates an enforcer. Warning replies are removed after replyDelay.
func NewEnforcer(
	store Store, gateway Gateway, tracker *Tracker, replyDelay time.Duration, logger *zap.Logger, opts ...EnforcerOption,
) *Enforcer {
	e := &Enforcer{
		store:      store,
		gateway:    gateway,
		tracker:    tracker,
		replyDelay: replyDelay,
		moderator:  func() Moderator { return Moderator{} },
		logger:     logger.Named("enforcer"),
		stop:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// HandleViolation applies policy to the author of msg.
// The message is always removed and a short-lived warning is posted; a case and
// the policy action follow once the warning count reaches the threshold.
func (e *Enforcer) HandleViolation(ctx context.Context, msg *Message, policy Policy) (*Outcome, error) {
	maxID, err := e.store.MaxCaseID(ctx)
	if err != nil {
		e.metrics.enforcementError("case_id")
		return nil, fmt.Errorf("failed to get case id: %w", err)
	}

	caseID := maxID + 1

	exists, err := e.store.CaseExists(ctx, caseID)
	if err != nil {
		e.metrics.enforcementError("case_id")
		return nil, fmt.Errorf("failed to check case id: %w", err)
	}

	if exists {
		return nil, fmt.Errorf("%w: %d", ErrCaseIDTaken, caseID)
	}

	userID := uint64(msg.AuthorID)

	count, err := e.tracker.RecordViolation(ctx, userID, policy.Type, msg.CreatedAt.Unix())
	if err != nil {
		e.metrics.enforcementError("record_violation")
		return nil, fmt.Errorf("failed to record violation: %w", err)
	}

	e.metrics.violation(policy.Type)
	e.warn(ctx, msg, policy.Type)

	outcome := &Outcome{Warnings: count}
	if count < policy.WarnThreshold {
		e.logger.Debug("Warned user",
			zap.Uint64("userID", userID),
			zap.Stringer("policy", policy.Type),
			zap.Uint32("warnings", count))

		return outcome, nil
	}

	if err := e.tracker.ResetWarnings(ctx, userID, policy.Type); err != nil {
		e.logger.Warn("Failed to reset warnings", zap.Uint64("userID", userID), zap.Error(err))
	}

	c := e.newCase(caseID, msg, policy)

	created, err := e.store.CreateCase(ctx, c)
	if err != nil {
		e.metrics.enforcementError("create_case")
		return outcome, fmt.Errorf("failed to create case %d: %w", caseID, err)
	}

	outcome.Case = created

	e.notify(ctx, msg, policy, created)

	if err := e.apply(ctx, msg, policy); err != nil {
		e.metrics.enforcementError("action")
		return outcome, fmt.Errorf("failed to apply %s: %w", policy.Action, err)
	}

	e.metrics.action(string(policy.Action))

	if err := e.gateway.LogCase(ctx, created); err != nil {
		e.logger.Warn("Failed to post case to moderation log", zap.Int64("caseID", created.CaseID), zap.Error(err))
	}

	e.logger.Info("Enforced policy",
		zap.Int64("caseID", created.CaseID),
		zap.Uint64("userID", userID),
		zap.Stringer("policy", policy.Type),
		zap.String("action", string(policy.Action)))

	return outcome, nil
}

// Wait blocks until scheduled reply deletions finish. Pending deletions are dropped once Close is called.
func (e *Enforcer) Wait() {
	e.pending.Wait()
}

// Close drops pending reply deletions and waits for their goroutines to exit.
func (e *Enforcer) Close() {
	e.stopOnce.Do(func() { close(e.stop) })
	e.pending.Wait()
}

func (e *Enforcer) newCase(caseID int64, msg *Message, policy Policy) *types.Case {
	moderator := e.moderator()

	c := &types.Case{
		CaseID:        caseID,
		Action:        policy.Action,
		TargetID:      uint64(msg.AuthorID),
		TargetName:    msg.AuthorName,
		ModeratorID:   uint64(moderator.ID),
		ModeratorName: moderator.Name,
		Timestamp:     time.Now().UTC(),
		Reason:        policy.Reason,
	}

	if policy.Action == enum.ActionMute {
		end := msg.CreatedAt.Add(policy.MuteDuration).UTC()
		seconds := int64(policy.MuteDuration / time.Second)
		c.EndTime = &end
		c.Duration = &seconds
	}

	return c
}

// warn deletes the offending message and posts a temporary warning reply.
func (e *Enforcer) warn(ctx context.Context, msg *Message, policyType PolicyType) {
	if err := e.gateway.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		e.metrics.enforcementError("delete_message")
		e.logger.Warn("Failed to delete message",
			zap.Uint64("messageID", uint64(msg.ID)),
			zap.Error(err))
	}

	replyID, err := e.gateway.Reply(ctx, msg, replyTexts[policyType])
	if err != nil {
		e.metrics.enforcementError("reply")
		e.logger.Warn("Failed to post warning reply", zap.Error(err))

		return
	}

	channelID := msg.ChannelID

	e.pending.Go(func() {
		timer := time.NewTimer(e.replyDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-e.stop:
			return
		}

		// The request context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.gateway.DeleteMessage(ctx, channelID, replyID); err != nil {
			e.logger.Debug("Failed to delete warning reply", zap.Error(err))
		}
	})
}

// notify sends the direct message notice. Delivery failures do not stop enforcement.
func (e *Enforcer) notify(ctx context.Context, msg *Message, policy Policy, c *types.Case) {
	notice := Notice{
		Action: policy.Action,
		Reason: policy.Reason,
		CaseID: c.CaseID,
	}

	if policy.Action == enum.ActionMute {
		notice.Duration = policy.MuteDuration
	}

	delivered, err := e.gateway.DirectMessage(ctx, msg.AuthorID, notice)
	if err != nil || !delivered {
		e.logger.Info("Could not notify user",
			zap.Uint64("userID", uint64(msg.AuthorID)),
			zap.Int64("caseID", c.CaseID),
			zap.Error(err))
	}
}

func (e *Enforcer) apply(ctx context.Context, msg *Message, policy Policy) error {
	switch policy.Action {
	case enum.ActionWarn:
		return nil
	case enum.ActionMute:
		return e.gateway.Mute(ctx, msg.AuthorID, msg.CreatedAt.Add(policy.MuteDuration), policy.Reason)
	case enum.ActionKick:
		return e.gateway.Kick(ctx, msg.AuthorID, policy.Reason)
	case enum.ActionBan:
		return e.gateway.Ban(ctx, msg.AuthorID, policy.Reason)
	case enum.ActionSoftban:
		if err := e.gateway.Ban(ctx, msg.AuthorID, policy.Reason); err != nil {
			return err
		}

		return e.gateway.Unban(ctx, msg.AuthorID, policy.Reason)
	default:
		return fmt.Errorf("%w: %q", enum.ErrUnknownAction, policy.Action)
	}
}
