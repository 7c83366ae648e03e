package model

// EHRResponse is the documented shape of a successful process_audio response.
// Validation works on the raw JSON; this type exists to publish the schema.
type EHRResponse struct {
	EHR           EHR         `json:"ehr" jsonschema:"required"`
	Transcription string      `json:"transcription" jsonschema:"required"`
	Translation   Translation `json:"translation" jsonschema:"required"`
}

type EHR struct {
	Summary  map[string][]SummaryEntry `json:"summary" jsonschema:"required"`
	Metadata EHRMetadata               `json:"metadata" jsonschema:"required"`
}

type SummaryEntry struct {
	Text string `json:"text" jsonschema:"required"`
}

type EHRMetadata struct {
	ServiceUsed string `json:"service_used" jsonschema:"required"`
}

type Translation struct {
	Text string `json:"text" jsonschema:"required"`
}
