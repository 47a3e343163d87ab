// Package azure implements the task package's client interfaces against the
// Azure OpenAI speech, Whisper and video generation REST APIs, and against
// the document OCR job service.
//
// Every client reports missing endpoint, key or deployment through
// CheckConfig with an error wrapping domain.ErrConfiguration. Transport
// failures and 5xx or 429 responses wrap domain.ErrNetwork; other non-2xx
// responses wrap domain.ErrExternalJobFailed.
package azure
