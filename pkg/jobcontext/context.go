// Package jobcontext carries pipeline run metadata through contexts and
// runs stage work with panic recovery.
package jobcontext

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type KeyContext string

var (
	keyMeetingID      KeyContext = "meeting_id"
	keyStage          KeyContext = "stage"
	keySegmentIndex   KeyContext = "segment_index"
	keyStageStartTime KeyContext = "stage_start_time"
)

// StageMetadata holds metadata for one pipeline stage execution
type StageMetadata struct {
	MeetingID    string
	Stage        string
	SegmentIndex int
	StartTime    time.Time
}

// StageBegin derives a context for one stage of a meeting run. A positive
// timeout bounds the stage; otherwise only cancellation applies.
func StageBegin(parentCtx context.Context, meetingID, stage string, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}

	ctx = context.WithValue(ctx, keyMeetingID, meetingID)
	ctx = context.WithValue(ctx, keyStage, stage)
	ctx = context.WithValue(ctx, keyStageStartTime, time.Now())
	return ctx, cancel
}

// WithSegment tags ctx with the index of the segment being processed.
func WithSegment(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, keySegmentIndex, index)
}

// Run executes fn, converting a panic into an error. A context that is
// already done is reported without calling fn.
func Run(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic recovered: %v", p)
		}
	}()

	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled before execution: %w", ctx.Err())
	}
	return fn(ctx)
}

// GetMeetingID extracts the meeting id from context
func GetMeetingID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(keyMeetingID).(string)
	return id, ok
}

// GetStage extracts the stage name from context
func GetStage(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(keyStage).(string)
	return stage, ok
}

// GetSegmentIndex extracts the segment index from context, or -1.
func GetSegmentIndex(ctx context.Context) int {
	idx, ok := ctx.Value(keySegmentIndex).(int)
	if !ok {
		return -1
	}
	return idx
}

// GetStageStartTime extracts the stage start time from context
func GetStageStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyStageStartTime).(time.Time)
	return startTime, ok
}

// Elapsed returns the time since the stage began, or 0 outside a stage.
func Elapsed(ctx context.Context) time.Duration {
	start, ok := GetStageStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// GetStageMetadata extracts all stage metadata from context
func GetStageMetadata(ctx context.Context) *StageMetadata {
	meetingID, _ := GetMeetingID(ctx)
	stage, _ := GetStage(ctx)
	startTime, _ := GetStageStartTime(ctx)

	return &StageMetadata{
		MeetingID:    meetingID,
		Stage:        stage,
		SegmentIndex: GetSegmentIndex(ctx),
		StartTime:    startTime,
	}
}

var retryableMarkers = []string{
	// request timeouts; the caller's own context is checked separately
	"context deadline exceeded",
	"client.timeout exceeded",
	// network
	"connection refused",
	"connection reset",
	"network unreachable",
	"no such host",
	"i/o timeout",
	"unexpected eof",
	// rate limits
	"rate limit",
	"too many requests",
	"429",
	// server side
	"status 5",
	"internal server error",
	"service unavailable",
	"bad gateway",
	"overloaded",
	"temporary failure",
	"try again",
}

var permanentMarkers = []string{
	"400",
	"401",
	"403",
	"404",
	"bad request",
	"unauthorized",
	"validation failed",
	"malformed",
	"parse error",
}

// IsRetryableError reports whether err reads like a transient failure of a
// hosted API: timeouts, network errors, rate limits or 5xx responses.
func IsRetryableError(err error) bool {
	return containsAny(err, retryableMarkers)
}

// IsNonRetryableError reports whether err reads like a client error (4xx
// other than 429) or a malformed request that will fail again.
func IsNonRetryableError(err error) bool {
	return containsAny(err, permanentMarkers)
}

func containsAny(err error, markers []string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
