package quicconn

import (
	"crypto/rand"
	"log/slog"
	"net/netip"
	"time"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/logging"
)

// The pathValidatorHost sends PATH_CHALLENGE frames for the PathValidator.
type pathValidatorHost interface {
	// SendPathChallenge sends a PATH_CHALLENGE frame on the path that is being validated.
	SendPathChallenge(ctx *PathValidationContext, data [8]byte)
	// PathChallengeRetryTimeout is the time after which an unanswered PATH_CHALLENGE is retried.
	PathChallengeRetryTimeout(ctx *PathValidationContext) time.Duration
}

type pathChallenge struct {
	data     [8]byte
	sendTime monotime.Time
}

// The PathValidator validates one path at a time.
// It sends PATH_CHALLENGE frames and waits for a matching PATH_RESPONSE.
// Unanswered challenges are retried up to protocol.MaxPathValidationRetries times,
// after which the validation fails.
type PathValidator struct {
	host   pathValidatorHost
	alarms *AlarmSet
	clock  Clock
	tracer *logging.ConnectionTracer
	logger *slog.Logger

	ctx        *PathValidationContext
	result     PathValidationResult
	reason     PathValidationReason
	challenges []pathChallenge
	retryCount int
}

func newPathValidator(host pathValidatorHost, alarms *AlarmSet, clock Clock, tracer *logging.ConnectionTracer, logger *slog.Logger) *PathValidator {
	v := &PathValidator{
		host:   host,
		alarms: alarms,
		clock:  clock,
		tracer: tracer,
		logger: logger,
	}
	alarms.Register(AlarmPathValidation, v.onRetryTimeout)
	return v
}

// StartPathValidation starts validating a path.
// A validation that is still in progress is cancelled first.
func (v *PathValidator) StartPathValidation(ctx *PathValidationContext, result PathValidationResult, reason PathValidationReason) {
	if v.ctx != nil {
		v.logger.Debug("cancelling path validation", "peer", v.ctx.Peer, "reason", v.reason)
		v.CancelPathValidation()
	}
	v.logger.Debug("starting path validation", "self", ctx.Self, "peer", ctx.Peer, "reason", reason)
	v.ctx = ctx
	v.result = result
	v.reason = reason
	if v.tracer != nil && v.tracer.StartedPathValidation != nil {
		v.tracer.StartedPathValidation(ctx.Self, ctx.Peer, reason)
	}
	v.sendPathChallengeAndSetAlarm()
}

func (v *PathValidator) sendPathChallengeAndSetAlarm() {
	var c pathChallenge
	rand.Read(c.data[:])
	c.sendTime = v.clock.Now()
	v.challenges = append(v.challenges, c)
	// The host might cancel the validation when sending the challenge fails.
	ctx := v.ctx
	v.host.SendPathChallenge(ctx, c.data)
	if v.ctx != ctx {
		return
	}
	v.alarms.Set(AlarmPathValidation, c.sendTime.Add(v.host.PathChallengeRetryTimeout(ctx)))
}

func (v *PathValidator) onRetryTimeout(monotime.Time) {
	if v.ctx == nil {
		return
	}
	v.retryCount++
	if v.retryCount > protocol.MaxPathValidationRetries {
		v.logger.Debug("path validation timed out", "peer", v.ctx.Peer, "retries", v.retryCount-1)
		v.CancelPathValidation()
		return
	}
	v.logger.Debug("retrying path challenge", "peer", v.ctx.Peer, "retry", v.retryCount)
	v.sendPathChallengeAndSetAlarm()
}

// OnPathResponse handles a PATH_RESPONSE frame received on self.
// The validation succeeds if the data matches one of the challenges sent.
func (v *PathValidator) OnPathResponse(data [8]byte, self netip.AddrPort) {
	if v.ctx == nil {
		return
	}
	if self != v.ctx.Self {
		v.logger.Debug("ignoring PATH_RESPONSE received on a different address", "self", self, "expected", v.ctx.Self)
		return
	}
	for _, c := range v.challenges {
		if c.data != data {
			continue
		}
		ctx, result := v.ctx, v.result
		v.logger.Debug("path validated", "self", ctx.Self, "peer", ctx.Peer, "reason", v.reason)
		if v.tracer != nil && v.tracer.CompletedPathValidation != nil {
			v.tracer.CompletedPathValidation(ctx.Self, ctx.Peer, true)
		}
		v.reset()
		result.OnPathValidationSuccess(ctx, c.sendTime)
		return
	}
	v.logger.Debug("ignoring PATH_RESPONSE with unknown data", "data", data)
}

// CancelPathValidation stops the validation in progress and reports it as failed.
// It is a no-op if no validation is in progress.
func (v *PathValidator) CancelPathValidation() {
	if v.ctx == nil {
		return
	}
	ctx, result := v.ctx, v.result
	if v.tracer != nil && v.tracer.CompletedPathValidation != nil {
		v.tracer.CompletedPathValidation(ctx.Self, ctx.Peer, false)
	}
	v.reset()
	result.OnPathValidationFailure(ctx)
}

func (v *PathValidator) reset() {
	v.ctx = nil
	v.result = nil
	v.reason = logging.PathValidationReasonUnknown
	v.challenges = v.challenges[:0]
	v.retryCount = 0
	v.alarms.Cancel(AlarmPathValidation)
}

// HasPendingPathValidation says if a validation is in progress.
func (v *PathValidator) HasPendingPathValidation() bool {
	return v.ctx != nil
}

// IsValidatingPeerAddress says if the path to peer is being validated.
func (v *PathValidator) IsValidatingPeerAddress(peer netip.AddrPort) bool {
	return v.ctx != nil && v.ctx.Peer == peer
}

// Context returns the path that is being validated, or nil.
func (v *PathValidator) Context() *PathValidationContext {
	return v.ctx
}

// Reason returns the reason of the validation in progress.
func (v *PathValidator) Reason() PathValidationReason {
	return v.reason
}
