package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyAudio is returned when there is no audio to transcribe.
	ErrEmptyAudio = errors.New("audio cannot be empty")

	// ErrInvalidResponse is returned when the API answers without usable text.
	ErrInvalidResponse = errors.New("invalid response from Gemini API")

	// ErrContentBlocked is returned when safety filters stop the response.
	ErrContentBlocked = errors.New("content blocked by safety filters")
)
