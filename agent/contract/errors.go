package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrResolution      = errors.New("resolution failed")
	ErrExternalService = errors.New("external service failed")
	ErrPersistence     = errors.New("persistence failed")
	ErrUnknownTool     = errors.New("unknown tool")
)
