package entities

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const meetingIDPrefix = "meeting_"

var meetingIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// NewMeetingID returns "meeting_" followed by 12 hex characters of a random
// UUID.
func NewMeetingID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return meetingIDPrefix + hex[:12]
}

// ValidMeetingID reports whether id is safe to use as a storage prefix.
func ValidMeetingID(id string) bool {
	return meetingIDPattern.MatchString(id)
}
