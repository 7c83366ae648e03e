package model

// DefaultSectionIDs is the section id list the processing endpoint is asked to generate.
var DefaultSectionIDs = []string{
	"4", "1", "2", "7", "8", "3", "11", "9", "10", "14", "13", "6", "5", "12", "0014", "0015", "0017",
}

const DefaultOperationType = "generate"

// UploadRequest is the JSON "request" part of a process_audio call. AudioPath names
// the file sent as the "audio_file" part and is never serialized.
type UploadRequest struct {
	OperationType          string   `json:"operation_type"`
	SectionIDs             []string `json:"section_ids"`
	EnableNativeTranscript bool     `json:"enable_native_transcript"`
	PatientID              string   `json:"patient_id"`
	VisitID                string   `json:"visit_id"`
	Name                   string   `json:"name"`
	DoctorID               string   `json:"doctor_id"`
	DoctorName             string   `json:"doctor_name"`

	AudioPath string `json:"-"`
}

// NewUploadRequest returns a copy of req with defaults applied. The section id
// slice is copied so later changes by the caller do not leak into the request.
func NewUploadRequest(req UploadRequest) UploadRequest {
	built := req
	if built.OperationType == "" {
		built.OperationType = DefaultOperationType
	}

	ids := req.SectionIDs
	if len(ids) == 0 {
		ids = DefaultSectionIDs
	}
	built.SectionIDs = append([]string(nil), ids...)
	return built
}
