package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer = 1000
	ErrInvalidParams  = 1001
	ErrNotFound       = 1002
	ErrUnauthorized   = 1003
	ErrForbidden      = 1004
	ErrConflict       = 1005
	ErrBadRequest     = 1006

	// Auth errors (2000-2999)
	ErrAuthInvalidCredentials = 2000
	ErrAuthWeakPassword       = 2001
	ErrAuthInvalidToken       = 2002
	ErrAuthTokenExpired       = 2003
	ErrAuthNotSignedIn        = 2004

	// User errors (3000-3999)
	ErrUserNotFound      = 3000
	ErrUserExists        = 3001
	ErrUserInvalidInput  = 3002
	ErrUserInvalidEmail  = 3003
	ErrRecoveryTokenUsed = 3004

	// Location errors (4000-4999)
	ErrLocationNotFound     = 4000
	ErrLocationInvalidLight = 4001

	// Plant errors (5000-5999)
	ErrPlantNotFound         = 5000
	ErrPlantInvalidCondition = 5001
	ErrPlantMaxExceeded      = 5002
	ErrPlantPartialAction    = 5003

	// Photo and media errors (6000-6999)
	ErrPhotoNotFound  = 6000
	ErrImageInvalid   = 6001
	ErrImageTooLarge  = 6002
	ErrMediaStorage   = 6003
	ErrUploadMissing  = 6004

	// Species errors (7000-7999)
	ErrSpeciesNotFound = 7000
	ErrSpeciesExists   = 7001
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer: {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:  {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:       {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:   {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:      {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:       {ErrConflict, http.StatusBadRequest, "Resource conflict"},
	ErrBadRequest:     {ErrBadRequest, http.StatusBadRequest, "Bad request"},

	// Auth errors
	ErrAuthInvalidCredentials: {ErrAuthInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	ErrAuthWeakPassword:       {ErrAuthWeakPassword, http.StatusBadRequest, "Password does not meet the requirements"},
	ErrAuthInvalidToken:       {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired token"},
	ErrAuthTokenExpired:       {ErrAuthTokenExpired, http.StatusUnauthorized, "Token expired"},
	ErrAuthNotSignedIn:        {ErrAuthNotSignedIn, http.StatusUnauthorized, "Not signed in"},

	// User errors
	ErrUserNotFound:      {ErrUserNotFound, http.StatusNotFound, "User not found"},
	ErrUserExists:        {ErrUserExists, http.StatusBadRequest, "User field already taken"},
	ErrUserInvalidInput:  {ErrUserInvalidInput, http.StatusBadRequest, "Invalid user input"},
	ErrUserInvalidEmail:  {ErrUserInvalidEmail, http.StatusBadRequest, "Invalid email format"},
	ErrRecoveryTokenUsed: {ErrRecoveryTokenUsed, http.StatusBadRequest, "Recovery token is invalid or already used"},

	// Location errors
	ErrLocationNotFound:     {ErrLocationNotFound, http.StatusNotFound, "Location not found"},
	ErrLocationInvalidLight: {ErrLocationInvalidLight, http.StatusBadRequest, "Invalid light value"},

	// Plant errors
	ErrPlantNotFound:         {ErrPlantNotFound, http.StatusNotFound, "Plant not found"},
	ErrPlantInvalidCondition: {ErrPlantInvalidCondition, http.StatusBadRequest, "Invalid plant condition"},
	ErrPlantMaxExceeded:      {ErrPlantMaxExceeded, http.StatusBadRequest, "Too many plants for a mass action"},
	ErrPlantPartialAction:    {ErrPlantPartialAction, http.StatusOK, "Some plants could not be affected"},

	// Photo and media errors
	ErrPhotoNotFound: {ErrPhotoNotFound, http.StatusNotFound, "Photo not found"},
	ErrImageInvalid:  {ErrImageInvalid, http.StatusBadRequest, "Uploaded file is not a valid image"},
	ErrImageTooLarge: {ErrImageTooLarge, http.StatusBadRequest, "Uploaded file exceeds the size limit"},
	ErrMediaStorage:  {ErrMediaStorage, http.StatusInternalServerError, "Media storage operation failed"},
	ErrUploadMissing: {ErrUploadMissing, http.StatusBadRequest, "No file uploaded"},

	// Species errors
	ErrSpeciesNotFound: {ErrSpeciesNotFound, http.StatusNotFound, "Species not found"},
	ErrSpeciesExists:   {ErrSpeciesExists, http.StatusBadRequest, "Species already exists"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// IsSuccess checks if the code represents success
func IsSuccess(code int) bool {
	return code == Success
}

// FormatError formats an error message with code
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
