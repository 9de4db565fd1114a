package errors

import "fmt"

// ErrorCode identifies an application error independent of its HTTP status.
type ErrorCode int32

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS   ErrorCode = 1003
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1004

	// Meetings and pipeline
	ErrorCode_MEETING_NOT_FOUND      ErrorCode = 2000
	ErrorCode_MEETING_ALREADY_EXISTS ErrorCode = 2001
	ErrorCode_AUDIO_NOT_FOUND        ErrorCode = 2002
	ErrorCode_PIPELINE_STAGE_FAILED  ErrorCode = 2100
	ErrorCode_CORRUPT_STATE          ErrorCode = 2101
	ErrorCode_EMBEDDING_MISMATCH     ErrorCode = 2102

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED      ErrorCode = 3000
	ErrorCode_INTEGRATION_CACHE_FAILED        ErrorCode = 3001
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED ErrorCode = 3002

	// Database
	ErrorCode_DB_CONNECTION_FAILED ErrorCode = 4000
	ErrorCode_DB_QUERY_FAILED      ErrorCode = 4001
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                         "HTTP_OK",
	ErrorCode_INTERNAL:                        "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:                "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                       "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:                  "ALREADY_EXISTS",
	ErrorCode_INVALID_PAYLOAD:                 "INVALID_PAYLOAD",
	ErrorCode_MEETING_NOT_FOUND:               "MEETING_NOT_FOUND",
	ErrorCode_MEETING_ALREADY_EXISTS:          "MEETING_ALREADY_EXISTS",
	ErrorCode_AUDIO_NOT_FOUND:                 "AUDIO_NOT_FOUND",
	ErrorCode_PIPELINE_STAGE_FAILED:           "PIPELINE_STAGE_FAILED",
	ErrorCode_CORRUPT_STATE:                   "CORRUPT_STATE",
	ErrorCode_EMBEDDING_MISMATCH:              "EMBEDDING_MISMATCH",
	ErrorCode_INTEGRATION_STORAGE_FAILED:      "INTEGRATION_STORAGE_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:        "INTEGRATION_CACHE_FAILED",
	ErrorCode_INTEGRATION_EXTERNAL_API_FAILED: "INTEGRATION_EXTERNAL_API_FAILED",
	ErrorCode_DB_CONNECTION_FAILED:            "DB_CONNECTION_FAILED",
	ErrorCode_DB_QUERY_FAILED:                 "DB_QUERY_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int32(c))
}
