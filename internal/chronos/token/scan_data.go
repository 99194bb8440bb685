package token

import (
	"encoding/json"
	"strings"
)

// Format tags the three shapes of QR data a kiosk scan can carry.
// Signed tokens are the only fully trusted form; the legacy JSON and
// raw-id forms are kept for old kiosk firmware and carry an explicitly
// lower trust level. They are never silently treated as verified.
type Format int

const (
	FormatSecure Format = iota
	FormatLegacyJSON
	FormatRawID
)

func (f Format) String() string {
	switch f {
	case FormatSecure:
		return "secure"
	case FormatLegacyJSON:
		return "legacy_json"
	default:
		return "raw_id"
	}
}

// ScanData is the result of classifying raw QR data. For FormatSecure
// only Encoded is set (the token still has to be verified); for the
// legacy formats only MachineID is set.
type ScanData struct {
	Format    Format
	Encoded   string
	MachineID string
}

type legacyPayload struct {
	MachineID string `json:"machineId"`
}

// ParseScanData classifies raw QR data into one of the three formats.
// It performs no cryptographic verification.
func ParseScanData(qr string) (ScanData, error) {
	qr = strings.TrimSpace(qr)
	if qr == "" {
		return ScanData{}, ErrMalformedToken
	}

	// A signed token always contains the payload/signature separator,
	// which cannot occur inside base64url segments.
	if strings.Contains(qr, ".") {
		return ScanData{Format: FormatSecure, Encoded: qr}, nil
	}

	if strings.HasPrefix(qr, "{") {
		var p legacyPayload
		if err := json.Unmarshal([]byte(qr), &p); err != nil {
			return ScanData{}, ErrMalformedToken
		}
		p.MachineID = strings.TrimSpace(p.MachineID)
		if p.MachineID == "" {
			return ScanData{}, ErrMalformedToken
		}
		return ScanData{Format: FormatLegacyJSON, MachineID: p.MachineID}, nil
	}

	if strings.ContainsAny(qr, " \t\n") {
		return ScanData{}, ErrMalformedToken
	}
	return ScanData{Format: FormatRawID, MachineID: qr}, nil
}
