package domain

import "time"

// UploadRequest is the file metadata a client submits to obtain upload
// credentials. It is consumed once and never persisted as-is.
type UploadRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	FileType string `json:"fileType"`
}

// UploadCredentials are the short-lived parameters authorizing one
// direct-to-storage POST upload. They belong to a single upload session and
// are discarded once the transport completes or fails.
type UploadCredentials struct {
	Key            string `json:"key"`
	Policy         string `json:"policy"`
	XAmzAlgorithm  string `json:"xAmzAlgorithm"`
	XAmzCredential string `json:"xAmzCredential"`
	XAmzDate       string `json:"xAmzDate"`
	XAmzSignature  string `json:"xAmzSignature"`
	SessionToken   string `json:"sessionToken"`
	UploadURL      string `json:"uploadUrl"`
}

// SuggestionSet holds the structured field suggestions produced for one
// uploaded document. A new set replaces any prior one.
type SuggestionSet struct {
	CompanyNames  []string `json:"companyNames"`
	Emails        []string `json:"emails"`
	FullAddresses []string `json:"fullAddresses"`
}

// UploadSession is the unit of workflow state: one file, one pipeline run.
type UploadSession struct {
	ID          string         `json:"id"`
	FileName    string         `json:"file_name"`
	FileSize    int64          `json:"file_size"`
	FileType    string         `json:"file_type"`
	StorageKey  string         `json:"storage_key"`
	State       WorkflowState  `json:"state"`
	Suggestions *SuggestionSet `json:"suggestions,omitempty"`
	Form        FormValues     `json:"form"`
	Submitted   bool           `json:"submitted"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TextExtractedEvent is the asynchronous notification that text content for an
// uploaded file became available.
type TextExtractedEvent struct {
	UploadID    string `json:"upload_id"`
	TextContent string `json:"text_content"`
}
