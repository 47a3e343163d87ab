package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared by every request type
var validate = validator.New()

// Request is the kind-specific, immutable input of a task.
type Request interface {
	// Kind returns the task kind this request belongs to
	Kind() Kind

	// Validate checks the request fields
	Validate() error
}

// Result is the kind-specific payload of a completed task.
type Result interface {
	// Kind returns the task kind this result belongs to
	Kind() Kind
}

// ContentRef points at a binary payload held in the blob store.
type ContentRef struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Empty reports whether the reference points at nothing.
func (c ContentRef) Empty() bool {
	return c.Key == ""
}

func validateStruct(kind Kind, v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s request: %v", ErrValidation, kind, err)
	}
	return nil
}

// ApplyDefaults returns req with the optional fields of its kind filled in.
// Requests of unknown types are returned unchanged.
func ApplyDefaults(req Request) Request {
	switch r := req.(type) {
	case SpeechSynthesisRequest:
		return r.WithDefaults()
	case SpeechTranscriptionRequest:
		return r.WithDefaults()
	case VideoGenerationRequest:
		return r.WithDefaults()
	case DocumentExtractionRequest:
		return r.WithDefaults()
	default:
		return req
	}
}

// AudioFormat is an output format supported by speech synthesis.
type AudioFormat string

// Supported speech synthesis output formats
const (
	AudioFormatMP3  AudioFormat = "mp3"
	AudioFormatOpus AudioFormat = "opus"
	AudioFormatAAC  AudioFormat = "aac"
	AudioFormatFLAC AudioFormat = "flac"
	AudioFormatWAV  AudioFormat = "wav"
	AudioFormatPCM  AudioFormat = "pcm"
)

// ContentType returns the MIME type for audio in this format.
func (f AudioFormat) ContentType() string {
	switch f {
	case AudioFormatMP3:
		return "audio/mpeg"
	case AudioFormatOpus:
		return "audio/opus"
	case AudioFormatAAC:
		return "audio/aac"
	case AudioFormatFLAC:
		return "audio/flac"
	case AudioFormatWAV:
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// SpeechSynthesisRequest asks for text to be rendered as audio.
type SpeechSynthesisRequest struct {
	Text         string      `json:"text" validate:"required,max=4096"`
	Voice        string      `json:"voice" validate:"required"`
	Speed        float64     `json:"speed" validate:"gte=0.25,lte=4"`
	Format       AudioFormat `json:"format" validate:"required,oneof=mp3 opus aac flac wav pcm"`
	Instructions string      `json:"instructions,omitempty" validate:"max=1024"`
}

// WithDefaults fills unset optional fields.
func (r SpeechSynthesisRequest) WithDefaults() SpeechSynthesisRequest {
	if r.Speed == 0 {
		r.Speed = 1.0
	}
	if r.Format == "" {
		r.Format = AudioFormatMP3
	}
	return r
}

func (r SpeechSynthesisRequest) Kind() Kind { return KindSpeechSynthesis }

func (r SpeechSynthesisRequest) Validate() error { return validateStruct(r.Kind(), r) }

// SpeechSynthesisResult holds the synthesized audio.
type SpeechSynthesisResult struct {
	Audio  ContentRef  `json:"audio"`
	Format AudioFormat `json:"format"`
	Voice  string      `json:"voice"`
}

func (r SpeechSynthesisResult) Kind() Kind { return KindSpeechSynthesis }

// ContentKeys lists the blob keys owned by the result.
func (r SpeechSynthesisResult) ContentKeys() []string { return nonEmptyKeys(r.Audio) }

// RecognitionMode tunes transcription for the kind of speech in the audio.
type RecognitionMode string

// Supported recognition modes
const (
	RecognitionInteractive  RecognitionMode = "interactive"
	RecognitionConversation RecognitionMode = "conversation"
	RecognitionDictation    RecognitionMode = "dictation"
)

// LanguageAuto lets the transcription service detect the spoken language.
const LanguageAuto = "auto"

// SpeechTranscriptionRequest asks for an uploaded audio file to be transcribed.
type SpeechTranscriptionRequest struct {
	FileName        string          `json:"file_name" validate:"required"`
	Language        string          `json:"language" validate:"required"`
	RecognitionMode RecognitionMode `json:"recognition_mode" validate:"required,oneof=interactive conversation dictation"`
	Audio           ContentRef      `json:"audio"`
}

// WithDefaults fills unset optional fields.
func (r SpeechTranscriptionRequest) WithDefaults() SpeechTranscriptionRequest {
	if r.Language == "" {
		r.Language = LanguageAuto
	}
	if r.RecognitionMode == "" {
		r.RecognitionMode = RecognitionInteractive
	}
	return r
}

func (r SpeechTranscriptionRequest) Kind() Kind { return KindSpeechTranscription }

func (r SpeechTranscriptionRequest) Validate() error {
	if r.Audio.Empty() {
		return fmt.Errorf("%w: %s request: audio content is required", ErrValidation, r.Kind())
	}
	return validateStruct(r.Kind(), r)
}

// ContentKeys lists the blob keys owned by the request.
func (r SpeechTranscriptionRequest) ContentKeys() []string { return nonEmptyKeys(r.Audio) }

// Word is a single recognized word with timing information.
type Word struct {
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
}

// SpeechTranscriptionResult holds the recognized text.
type SpeechTranscriptionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

func (r SpeechTranscriptionResult) Kind() Kind { return KindSpeechTranscription }

// VideoGenerationRequest asks for a video to be generated from a prompt.
type VideoGenerationRequest struct {
	Prompt          string `json:"prompt" validate:"required,max=4000"`
	Width           int    `json:"width" validate:"required,gt=0,lte=1920"`
	Height          int    `json:"height" validate:"required,gt=0,lte=1920"`
	DurationSeconds int    `json:"duration_seconds" validate:"required,gt=0,lte=20"`
	Variants        int    `json:"variants" validate:"gte=1,lte=4"`
}

// WithDefaults fills unset optional fields.
func (r VideoGenerationRequest) WithDefaults() VideoGenerationRequest {
	if r.Variants == 0 {
		r.Variants = 1
	}
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = 480, 480
	}
	return r
}

func (r VideoGenerationRequest) Kind() Kind { return KindVideoGeneration }

func (r VideoGenerationRequest) Validate() error { return validateStruct(r.Kind(), r) }

// VideoGenerationResult holds the generated video.
type VideoGenerationResult struct {
	JobID           string     `json:"job_id"`
	GenerationID    string     `json:"generation_id"`
	DurationSeconds int        `json:"duration_seconds"`
	Video           ContentRef `json:"video"`
}

func (r VideoGenerationResult) Kind() Kind { return KindVideoGeneration }

// ContentKeys lists the blob keys owned by the result.
func (r VideoGenerationResult) ContentKeys() []string { return nonEmptyKeys(r.Video) }

// MaxDocumentSize is the largest document accepted for extraction.
const MaxDocumentSize = 100 * 1024 * 1024

// DocumentExtractionRequest asks for the text of an uploaded PDF to be extracted.
type DocumentExtractionRequest struct {
	FileName       string     `json:"file_name" validate:"required"`
	FileSize       int64      `json:"file_size" validate:"gt=0"`
	ExtractionType string     `json:"extraction_type" validate:"required"`
	Document       ContentRef `json:"document"`
}

// WithDefaults fills unset optional fields.
func (r DocumentExtractionRequest) WithDefaults() DocumentExtractionRequest {
	if r.ExtractionType == "" {
		r.ExtractionType = "azure"
	}
	return r
}

func (r DocumentExtractionRequest) Kind() Kind { return KindDocumentExtraction }

func (r DocumentExtractionRequest) Validate() error {
	if r.Document.Empty() {
		return fmt.Errorf("%w: %s request: document content is required", ErrValidation, r.Kind())
	}
	if r.FileSize > MaxDocumentSize {
		return fmt.Errorf("%w: %s request: file exceeds %d bytes", ErrValidation, r.Kind(), MaxDocumentSize)
	}
	return validateStruct(r.Kind(), r)
}

// ContentKeys lists the blob keys owned by the request.
func (r DocumentExtractionRequest) ContentKeys() []string { return nonEmptyKeys(r.Document) }

// DocumentExtractionResult references the extraction outputs.
type DocumentExtractionResult struct {
	ExtractionJobID string     `json:"extraction_job_id"`
	OutputDocxURL   string     `json:"output_docx_url,omitempty"`
	OutputJSONURL   string     `json:"output_json_url,omitempty"`
	Document        ContentRef `json:"document"`
}

func (r DocumentExtractionResult) Kind() Kind { return KindDocumentExtraction }

// ContentKeys lists the blob keys owned by the result.
func (r DocumentExtractionResult) ContentKeys() []string { return nonEmptyKeys(r.Document) }

func nonEmptyKeys(refs ...ContentRef) []string {
	var keys []string
	for _, ref := range refs {
		if !ref.Empty() {
			keys = append(keys, ref.Key)
		}
	}
	return keys
}
