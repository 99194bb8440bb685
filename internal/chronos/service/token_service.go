package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/token"
)

// TokenService issues fresh check-in tokens for kiosk machines and
// pre-registers their nonces with the replay store.
type TokenService struct {
	codec    *token.Codec
	machines store.MachineStore
	replays  store.ReplayStore
}

func NewTokenService(codec *token.Codec, machines store.MachineStore, replays store.ReplayStore) *TokenService {
	return &TokenService{codec: codec, machines: machines, replays: replays}
}

// IssueForMachine issues a token for an active machine. The nonce is
// registered unconsumed so the audit trail covers tokens that are never
// scanned.
func (s *TokenService) IssueForMachine(ctx context.Context, machineID string, validFor time.Duration) (string, token.Token, error) {
	machineID = strings.TrimSpace(machineID)

	machine, err := s.machines.FindActive(ctx, machineID)
	if err != nil {
		return "", token.Token{}, fmt.Errorf("find machine: %w", err)
	}
	if machine == nil {
		return "", token.Token{}, ErrUnknownMachine
	}

	encoded, tok, err := s.codec.Issue(machine.ID, validFor)
	if err != nil {
		return "", token.Token{}, err
	}

	if err := s.replays.Create(ctx, store.ReplayRecord{
		Nonce:       tok.Nonce,
		MachineID:   tok.MachineID,
		IssuedAtMs:  tok.IssuedAtMs,
		ExpiresAtMs: tok.ExpiresAtMs(),
	}); err != nil {
		return "", token.Token{}, fmt.Errorf("register nonce: %w", err)
	}

	return encoded, tok, nil
}
