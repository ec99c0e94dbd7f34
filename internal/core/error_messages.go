package core

// error_messages.go maps technical errors to coded, user-facing messages.
//
// Codes are quoted by users to support staff, so they are stable once
// published. They share one namespace with the issue codes the validation
// pipeline attaches to rows (VAL001-VAL010, IMP001-IMP005), which lets the
// CLI and the HTTP layer attach the same action hint to a row issue and to a
// Go error.
//
//	DB001-DB007     database (duplicates, missing records, connectivity)
//	VAL001-VAL010   cell values (dates, numbers, required, enums, references)
//	FILE001-FILE005 workbook files (size, format, readability)
//	IMP001-IMP007   import configuration and execution
//	SES001-SES005   analysis sessions and running imports
//	CFG001          import policy
//	RATE001         request throttling
//	REQ001          malformed API requests
//	AUTH001-AUTH002 API keys
//	ERR000          fallback; check the server log for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgDuplicateID = UserMessage{
		Message: "A record with this ID already exists",
		Action:  "Re-run validation so duplicates are detected before importing",
		Code:    "DB001",
	}
	msgUnique = UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check the workbook for repeated names",
		Code:    "DB002",
	}
	msgRecordGone = UserMessage{
		Message: "The record to replace no longer exists",
		Action:  "Validate the workbook again to refresh duplicate matches",
		Code:    "DB003",
	}
	msgInvalidDate = UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use YYYY-MM-DD, or a 4-digit year such as 03/01/2025",
		Code:    "VAL001",
	}
	msgInvalidNumber = UserMessage{
		Message: "Invalid number format detected",
		Action:  "Use plain numbers; currency symbols, commas and % are accepted",
		Code:    "VAL002",
	}
	msgReadFailed = UserMessage{
		Message: "The file could not be read",
		Action:  "Open the file in a spreadsheet application and save it again as .xlsx or .csv",
		Code:    "FILE003",
	}
	msgNoEnabledSheets = UserMessage{
		Message: "No sheets are enabled for import",
		Action:  "Enable at least one sheet and choose its entity type",
		Code:    "IMP001",
	}
	msgSessionNotFound = UserMessage{
		Message: "Analysis session not found",
		Action:  "The session may have expired. Please upload the workbook again",
		Code:    "SES003",
	}
	msgInvalidPolicy = UserMessage{
		Message: "The import policy is invalid",
		Action:  "Check thresholds are between 0 and 100 and field names exist",
		Code:    "CFG001",
	}
)

// errorPatterns is ordered: the first pattern contained in the lower-cased
// error text wins.
var errorPatterns = []errorPattern{
	// Database
	{"duplicate key", msgDuplicateID},
	{"entity id already exists", msgDuplicateID},
	{"unique constraint", msgUnique},
	{"violates unique", msgUnique},
	{"entity not found", msgRecordGone},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Import fewer sheets at once or try again later",
		Code:    "DB006",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},

	// Cell values
	{"2-digit year", msgInvalidDate},
	{"not a recognised date", msgInvalidDate},
	{"not a valid calendar date", msgInvalidDate},
	{"is not a date", msgInvalidDate},
	{"is not a number", msgInvalidNumber},
	{"is required", UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in the value or map a column to the field",
		Code:    "VAL003",
	}},
	{"is not one of", UserMessage{
		Message: "Value is not in the allowed list",
		Action:  "Use one of the listed values for this field",
		Code:    "VAL006",
	}},
	{"imported later", UserMessage{
		Message: "A record refers to a type that is imported after it",
		Action:  "Check the entity type chosen for each sheet",
		Code:    "VAL007",
	}},

	// Files
	{"file too large", UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the workbook into smaller files",
		Code:    "FILE001",
	}},
	{"unsupported workbook format", UserMessage{
		Message: "File is not a supported workbook",
		Action:  "Upload an .xlsx or .csv file",
		Code:    "FILE002",
	}},
	{"open workbook", msgReadFailed},
	{"read csv", msgReadFailed},
	{"read sheet", msgReadFailed},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a workbook to upload",
		Code:    "FILE004",
	}},
	{"workbook has no sheets", UserMessage{
		Message: "The workbook has no sheets",
		Action:  "Upload a workbook with at least one sheet of data",
		Code:    "FILE005",
	}},

	// Policy errors can quote entity types, so they go before the import patterns.
	{"invalid policy", msgInvalidPolicy},
	{"parse policy", msgInvalidPolicy},
	{"read policy", msgInvalidPolicy},

	// Import configuration and execution
	{"no sheets are enabled", msgNoEnabledSheets},
	{"not found in workbook", UserMessage{
		Message: "A configured sheet is missing from the workbook",
		Action:  "Check the sheet name or upload the workbook again",
		Code:    "IMP002",
	}},
	{"unknown entity type", UserMessage{
		Message: "Unknown entity type",
		Action:  "Choose one of: pillar, kpi, initiative, project, task, milestone, resource",
		Code:    "IMP003",
	}},
	{"has no data rows", UserMessage{
		Message: "A sheet has no data rows",
		Action:  "Disable the sheet or add rows below the header",
		Code:    "IMP004",
	}},
	{"already mapped from column", UserMessage{
		Message: "Two columns are mapped to the same field",
		Action:  "Map each field from one column only",
		Code:    "IMP005",
	}},
	{"cannot proceed", UserMessage{
		Message: "Validation found problems that block the import",
		Action:  "Fix the listed errors and validate again",
		Code:    "IMP006",
	}},
	{"unknown duplicate strategy", UserMessage{
		Message: "Unknown duplicate handling option",
		Action:  "Use skip, keep or replace",
		Code:    "IMP007",
	}},

	// Sessions and running imports
	{"import cancelled", UserMessage{
		Message: "Import was cancelled",
		Action:  "Rows written before the cancel were rolled back. Start again when ready",
		Code:    "SES001",
	}},
	{"too many imports", UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "SES002",
	}},
	{"session not found", msgSessionNotFound},
	{"import not found", msgSessionNotFound},
	{"context canceled", UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "SES004",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller workbook or check your connection",
		Code:    "SES005",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},

	{"invalid request body", UserMessage{
		Message: "The request could not be read",
		Action:  "Send a JSON body matching the documented request shape",
		Code:    "REQ001",
	}},
	{"missing api key", UserMessage{
		Message: "An API key is required",
		Action:  "Send your key in the X-API-Key header",
		Code:    "AUTH001",
	}},
	{"invalid api key", UserMessage{
		Message: "The API key was not accepted",
		Action:  "Check the key with your administrator",
		Code:    "AUTH002",
	}},
}

// codeOnly covers issue codes that have no Go error text of their own.
var codeOnly = []UserMessage{
	{Message: "Referenced record could not be resolved", Action: "Import the parent first or fix the name to match an existing record", Code: "VAL007"},
	{Message: "A business rule was broken", Action: "Review the values named in the message", Code: "VAL008"},
	{Message: "The same record appears twice in one sheet", Action: "Remove the repeated row", Code: "VAL009"},
	{Message: "Value was reformatted on import", Action: "Check the value was read as intended", Code: "VAL010"},
}

// defaultMessage is returned when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
//
//	msg := MapError(fmt.Errorf("create pillar p1: %w", store.ErrDuplicateID))
//	// msg.Code == "DB001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// LookupCode returns the catalog entry for a code, such as the Code of a
// validate.Issue.
func LookupCode(code string) (UserMessage, bool) {
	if code == "" {
		return UserMessage{}, false
	}
	for _, m := range codeOnly {
		if m.Code == code {
			return m, true
		}
	}
	for _, ep := range errorPatterns {
		if ep.msg.Code == code {
			return ep.msg, true
		}
	}
	if code == defaultMessage.Code {
		return defaultMessage, true
	}
	return UserMessage{}, false
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its user message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
