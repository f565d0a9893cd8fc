package models

import "errors"

// Application-wide standard errors
var (
	// Resource errors
	ErrNotFound      = errors.New("resource not found")
	ErrStoryNotFound = errors.New("story not found")
	ErrSceneNotFound = errors.New("scene not found")
	ErrShotNotFound  = errors.New("shot not found")

	// Input errors
	ErrValidation     = errors.New("invalid structure")
	ErrInvalidInput   = errors.New("invalid input data")
	ErrScopeViolation = errors.New("id does not belong to the referenced parent")

	// Generation errors
	ErrBackend          = errors.New("generation backend error")
	ErrPrecondition     = errors.New("generation precondition not met")
	ErrJobAlreadyActive = errors.New("a job for this shot and media kind is already active")

	// Storage errors
	ErrStorage = errors.New("blob storage operation failed")
)
