package types

type ScanRequest struct {
	UserID string `json:"userId"`
	QRData string `json:"qrData"`
}

type ScanResponse struct {
	Kind         RecordKind `json:"kind"`
	OccurredAtMs int64      `json:"occurredAtMs"`
	MachineID    string     `json:"machineId"`
	Location     string     `json:"location,omitempty"`
	Confidence   string     `json:"confidence"`
	Reason       string     `json:"reason"`
	Hash         string     `json:"hash"`
	Warnings     []string   `json:"warnings,omitempty"`
	Suggestions  []string   `json:"suggestions,omitempty"`
}

type IssueTokenRequest struct {
	ValidForSeconds int `json:"validForSeconds,omitempty"`
}

type IssueTokenResponse struct {
	Token     string `json:"token"`
	MachineID string `json:"machineId"`
	ExpiresIn int    `json:"expiresIn"`
}

type ChainVerifyResponse struct {
	OK       bool   `json:"ok"`
	Checked  int    `json:"checked"`
	FailedAt *int   `json:"failedAt,omitempty"`
	Detail   string `json:"detail,omitempty"`
}
