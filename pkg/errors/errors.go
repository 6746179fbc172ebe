package errors

import "fmt"

// Error codes
const (
	CodeAppError    = "APP_ERROR"
	CodeTranslation = "TRANSLATION_ERROR"
	CodeSynthesis   = "SYNTHESIS_ERROR"
	CodeValidation  = "VALIDATION_ERROR"
	CodeSession     = "SESSION_ERROR"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// TranslationError is terminal for a translate request: every applicable engine
// pass failed and no translated text may be shown.
type TranslationError struct {
	*AppError
	Engine string
	Chunk  int
}

func NewTranslationError(message, engine string, chunk int, cause error) *TranslationError {
	return &TranslationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeTranslation,
			StatusCode: 502,
			Context: map[string]any{
				"engine": engine,
				"chunk":  chunk,
			},
			Cause: cause,
		},
		Engine: engine,
		Chunk:  chunk,
	}
}

// SynthesisError only withholds audio; the translation itself stands.
type SynthesisError struct {
	*AppError
	Lang        string
	Unsupported bool
}

func NewSynthesisError(message, lang string, cause error) *SynthesisError {
	return &SynthesisError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeSynthesis,
			StatusCode: 502,
			Context: map[string]any{
				"lang": lang,
			},
			Cause: cause,
		},
		Lang: lang,
	}
}

func NewUnsupportedLanguageError(lang string) *SynthesisError {
	err := NewSynthesisError("Audio is not available for this language.", lang, nil)
	err.StatusCode = 404
	err.Unsupported = true
	return err
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type SessionError struct {
	*AppError
	Operation string
	SessionID string
}

func NewSessionError(message, operation, sessionID string, cause error) *SessionError {
	return &SessionError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeSession,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
			},
			Cause: cause,
		},
		Operation: operation,
		SessionID: sessionID,
	}
}
