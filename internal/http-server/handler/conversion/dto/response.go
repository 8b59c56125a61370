package dto

type FileResult struct {
	Name          string `json:"name"`
	ConvertedName string `json:"converted_name,omitempty"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	Size          int64  `json:"size"`
	DataURI       string `json:"data_uri,omitempty"`
}

type BatchResponse struct {
	Quality   string       `json:"quality"`
	Converted int          `json:"converted"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Files     []FileResult `json:"files"`
}

type HistoryItem struct {
	Index         int    `json:"index"`
	OriginalName  string `json:"original_name"`
	ConvertedName string `json:"converted_name"`
	Timestamp     string `json:"timestamp"`
	DownloadURL   string `json:"download_url"`
}

type HistoryResponse struct {
	Entries    []HistoryItem `json:"entries"`
	ArchiveURL string        `json:"archive_url,omitempty"`
}

type QualityOption struct {
	Value       string `json:"value"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

type EmailResponse struct {
	Message string `json:"message"`
	Note    string `json:"note"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
