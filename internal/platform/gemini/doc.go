// Package gemini provides an implementation of the task.TranscriptionClient
// interface that uses Google's Gemini API to transcribe recorded audio.
//
// It is the alternative transcription backend to the Azure Whisper client and
// is selected through configuration. The package translates between the
// application's transcription requests and the Gemini API without exposing
// the details of the external service to the task package.
//
// Key components:
//
// 1. Transcriber:
//   - Implements task.TranscriptionClient
//   - Sends the audio inline together with a transcription prompt
//   - Concatenates the text parts of the first candidate
//
// 2. Prompt Management:
//   - Uses a built-in prompt template or one loaded from a file
//   - Substitutes the requested language and recognition mode
//
// 3. Error Handling:
//   - Retries transient API errors with exponential backoff and jitter
//   - Reports blocked or empty responses as external job failures
//   - Reports exhausted retries as network failures
//
// The package depends on Google's google.golang.org/genai client library.
package gemini
