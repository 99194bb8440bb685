package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/resolver"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/token"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/types"
)

var (
	ErrInvalidUserID = errors.New("userId is required")

	// ErrUnknownMachine covers unknown and deactivated machines alike.
	ErrUnknownMachine = errors.New("unknown or inactive machine")

	// ErrReplayedToken means the token's nonce was already consumed.
	ErrReplayedToken = errors.New("token already consumed")
)

// ScanService turns verified kiosk scans into attendance records. The
// verification order is fixed: token signature, replay claim, machine
// lookup, kind resolution, ledger append. Every failure is terminal for
// the scan; there is no silent fallback to a weaker check.
type ScanService struct {
	codec      *token.Codec
	resolver   *resolver.Resolver
	machines   store.MachineStore
	attendance store.AttendanceStore
	replays    store.ReplayStore
	logger     *log.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewScanService(
	codec *token.Codec,
	res *resolver.Resolver,
	machines store.MachineStore,
	attendance store.AttendanceStore,
	replays store.ReplayStore,
	logger *log.Logger,
) *ScanService {
	return &ScanService{
		codec:      codec,
		resolver:   res,
		machines:   machines,
		attendance: attendance,
		replays:    replays,
		logger:     logger,
		now:        time.Now,
	}
}

// Process handles one scan end to end.
func (s *ScanService) Process(ctx context.Context, req types.ScanRequest) (types.ScanResponse, error) {
	now := s.now().UTC()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return types.ScanResponse{}, ErrInvalidUserID
	}

	data, err := token.ParseScanData(req.QRData)
	if err != nil {
		return types.ScanResponse{}, err
	}

	var (
		machineID string
		warnings  []string
	)

	switch data.Format {
	case token.FormatSecure:
		tok, err := s.codec.Verify(data.Encoded, now)
		if err != nil {
			return types.ScanResponse{}, err
		}

		claimed, err := s.replays.Claim(ctx, tok.Nonce, tok.MachineID, userID, tok.IssuedAtMs, tok.ExpiresAtMs())
		if err != nil {
			return types.ScanResponse{}, fmt.Errorf("claim nonce: %w", err)
		}
		if !claimed {
			return types.ScanResponse{}, ErrReplayedToken
		}
		machineID = tok.MachineID

	default:
		// Legacy kiosk formats carry no signature. They are accepted but
		// never as equals of a verified scan: the record is produced with
		// downgraded confidence and an explicit warning.
		machineID = data.MachineID
		warnings = append(warnings, fmt.Sprintf("unverified %s scan format", data.Format))
	}

	machine, err := s.machines.FindActive(ctx, machineID)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("find machine: %w", err)
	}
	if machine == nil {
		return types.ScanResponse{}, ErrUnknownMachine
	}

	last, err := s.attendance.FindLast(ctx, userID)
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("find last record: %w", err)
	}

	var lastRec *resolver.LastRecord
	if last != nil {
		lastRec = &resolver.LastRecord{
			Kind:       last.Kind,
			OccurredAt: time.UnixMilli(last.OccurredAtMs).UTC(),
		}
	}

	res := s.resolver.Resolve(lastRec, now)

	validationWarnings, err := s.resolver.Validate(lastRec, now, res.Kind)
	if err != nil {
		return types.ScanResponse{}, err
	}
	warnings = append(warnings, validationWarnings...)

	confidence := res.Confidence
	if data.Format != token.FormatSecure {
		confidence = downgradeForFormat(confidence, data.Format)
	}

	rec, err := s.attendance.Append(ctx, store.NewAttendance{
		UserID:       userID,
		MachineID:    machine.ID,
		Kind:         res.Kind,
		OccurredAtMs: now.UnixMilli(),
	})
	if err != nil {
		return types.ScanResponse{}, fmt.Errorf("append record: %w", err)
	}

	s.logger.Printf("scan user=%s machine=%s kind=%s confidence=%s format=%s",
		userID, machine.ID, rec.Kind, confidence, data.Format)

	return types.ScanResponse{
		Kind:         rec.Kind,
		OccurredAtMs: rec.OccurredAtMs,
		MachineID:    machine.ID,
		Location:     machine.Location,
		Confidence:   string(confidence),
		Reason:       res.Reason,
		Hash:         rec.Hash,
		Warnings:     warnings,
		Suggestions:  res.Suggestions,
	}, nil
}

// downgradeForFormat caps the confidence of unverified scan formats:
// legacy JSON at medium, bare machine ids at low.
func downgradeForFormat(c resolver.Confidence, f token.Format) resolver.Confidence {
	switch f {
	case token.FormatLegacyJSON:
		if c == resolver.ConfidenceHigh {
			return resolver.ConfidenceMedium
		}
		return c
	default:
		return resolver.ConfidenceLow
	}
}
