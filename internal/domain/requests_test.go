package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidation(t *testing.T) {
	t.Parallel()

	audio := ContentRef{Key: "audio-1", ContentType: "audio/wav", Size: 42}
	doc := ContentRef{Key: "doc-1", ContentType: "application/pdf", Size: 42}

	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"synthesis defaults", SpeechSynthesisRequest{Text: "hi", Voice: "alloy"}.WithDefaults(), false},
		{"synthesis empty text", SpeechSynthesisRequest{Voice: "alloy"}.WithDefaults(), true},
		{"synthesis speed too high", SpeechSynthesisRequest{Text: "hi", Voice: "alloy", Speed: 4.5}.WithDefaults(), true},
		{"synthesis speed too low", SpeechSynthesisRequest{Text: "hi", Voice: "alloy", Speed: 0.1}.WithDefaults(), true},
		{"synthesis bad format", SpeechSynthesisRequest{Text: "hi", Voice: "alloy", Format: "ogg"}.WithDefaults(), true},
		{"transcription defaults", SpeechTranscriptionRequest{FileName: "a.wav", Audio: audio}.WithDefaults(), false},
		{"transcription missing audio", SpeechTranscriptionRequest{FileName: "a.wav"}.WithDefaults(), true},
		{"transcription bad mode", SpeechTranscriptionRequest{FileName: "a.wav", Audio: audio, RecognitionMode: "shout"}.WithDefaults(), true},
		{"video defaults", VideoGenerationRequest{Prompt: "a cat", DurationSeconds: 5}.WithDefaults(), false},
		{"video no prompt", VideoGenerationRequest{DurationSeconds: 5}.WithDefaults(), true},
		{"video too many variants", VideoGenerationRequest{Prompt: "a cat", DurationSeconds: 5, Variants: 9}.WithDefaults(), true},
		{"document defaults", DocumentExtractionRequest{FileName: "a.pdf", FileSize: 42, Document: doc}.WithDefaults(), false},
		{"document missing content", DocumentExtractionRequest{FileName: "a.pdf", FileSize: 42}.WithDefaults(), true},
		{"document too large", DocumentExtractionRequest{FileName: "a.pdf", FileSize: MaxDocumentSize + 1, Document: doc}.WithDefaults(), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestDefaults(t *testing.T) {
	t.Parallel()

	tts := SpeechSynthesisRequest{Text: "x", Voice: "v"}.WithDefaults()
	assert.Equal(t, 1.0, tts.Speed)
	assert.Equal(t, AudioFormatMP3, tts.Format)

	stt := SpeechTranscriptionRequest{}.WithDefaults()
	assert.Equal(t, LanguageAuto, stt.Language)
	assert.Equal(t, RecognitionInteractive, stt.RecognitionMode)

	video := VideoGenerationRequest{}.WithDefaults()
	assert.Equal(t, 1, video.Variants)
	assert.Equal(t, 480, video.Width)
	assert.Equal(t, 480, video.Height)
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	video, ok := ApplyDefaults(VideoGenerationRequest{Prompt: "cat", DurationSeconds: 5}).(VideoGenerationRequest)
	require.True(t, ok)
	assert.Equal(t, VideoGenerationRequest{Prompt: "cat", DurationSeconds: 5, Width: 480, Height: 480, Variants: 1}, video)
	assert.NoError(t, video.Validate())

	tts, ok := ApplyDefaults(SpeechSynthesisRequest{Text: "hi", Voice: "alloy"}).(SpeechSynthesisRequest)
	require.True(t, ok)
	assert.Equal(t, AudioFormatMP3, tts.Format)

	stt, ok := ApplyDefaults(SpeechTranscriptionRequest{FileName: "a.wav"}).(SpeechTranscriptionRequest)
	require.True(t, ok)
	assert.Equal(t, LanguageAuto, stt.Language)

	doc, ok := ApplyDefaults(DocumentExtractionRequest{FileName: "a.pdf"}).(DocumentExtractionRequest)
	require.True(t, ok)
	assert.Equal(t, "azure", doc.ExtractionType)

	explicit := VideoGenerationRequest{Prompt: "cat", DurationSeconds: 5, Width: 1280, Height: 720, Variants: 2}
	assert.Equal(t, explicit, ApplyDefaults(explicit))
}

func TestAudioFormatContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "audio/mpeg", AudioFormatMP3.ContentType())
	assert.Equal(t, "audio/wav", AudioFormatWAV.ContentType())
	assert.Equal(t, "application/octet-stream", AudioFormatPCM.ContentType())
}
