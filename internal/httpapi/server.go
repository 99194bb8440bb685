package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/ledger"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/ratelimit"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/resolver"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/service"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/store"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/token"
	"github.com/c1c3ru/ChronosSystem-sub001/internal/chronos/types"
)

// maxRequestBody caps request body size. Scan and token-issue payloads
// are a few hundred bytes at most, so 4 KiB is generous.
const maxRequestBody = 4096

type Dependencies struct {
	Logger       *log.Logger
	Addr         string
	ScanService  *service.ScanService
	TokenService *service.TokenService
	Attendance   store.AttendanceStore

	// DefaultTokenTTL applies when an issue request omits validForSeconds.
	DefaultTokenTTL time.Duration

	// ScanLimiter is keyed by user id (falling back to the remote addr
	// when the request carries none), IssueLimiter by machine id.
	ScanLimiter  *ratelimit.Limiter
	IssueLimiter *ratelimit.Limiter

	// ScanAddrLimiter is a per-address backstop on the scan endpoint.
	// User ids arrive in the request body, so one client rotating ids
	// would otherwise open a fresh window per request.
	ScanAddrLimiter *ratelimit.Limiter
}

type Server struct {
	httpServer      *http.Server
	logger          *log.Logger
	mux             *http.ServeMux
	scanService     *service.ScanService
	tokenService    *service.TokenService
	attendance      store.AttendanceStore
	defaultTokenTTL time.Duration
	scanLimiter     *ratelimit.Limiter
	issueLimiter    *ratelimit.Limiter
	scanAddrLimiter *ratelimit.Limiter
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:          d.Logger,
		mux:             mux,
		scanService:     d.ScanService,
		tokenService:    d.TokenService,
		attendance:      d.Attendance,
		defaultTokenTTL: d.DefaultTokenTTL,
		scanLimiter:     d.ScanLimiter,
		issueLimiter:    d.IssueLimiter,
		scanAddrLimiter: d.ScanAddrLimiter,
	}

	mux.HandleFunc("POST /v1/scan", s.handleScan)
	mux.HandleFunc("POST /v1/machines/{id}/token", s.handleIssueToken)
	mux.HandleFunc("GET /v1/chain/verify", s.handleChainVerify)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	// Per-address backstop first, then the per-user window. The backstop
	// headers are overwritten by the per-user decision on success.
	if !s.admit(w, s.scanAddrLimiter, remoteHost(r)) {
		return
	}
	key := strings.TrimSpace(req.UserID)
	if key == "" {
		key = "addr:" + remoteHost(r)
	}
	if !s.admit(w, s.scanLimiter, key) {
		return
	}

	resp, err := s.scanService.Process(r.Context(), req)
	if err != nil {
		s.writeScanError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
	case errors.Is(err, token.ErrMalformedToken):
		writeError(w, http.StatusBadRequest, "malformed_token", err.Error())
	case errors.Is(err, token.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "invalid_signature", err.Error())
	case errors.Is(err, token.ErrExpiredToken):
		writeError(w, http.StatusBadRequest, "token_expired", err.Error())
	case errors.Is(err, service.ErrReplayedToken):
		writeError(w, http.StatusBadRequest, "token_replayed", err.Error())
	case errors.Is(err, service.ErrUnknownMachine):
		writeError(w, http.StatusBadRequest, "unknown_machine", err.Error())
	case errors.Is(err, resolver.ErrDuplicateWithinCooldown):
		writeError(w, http.StatusBadRequest, "duplicate_scan", err.Error())
	default:
		s.logger.Printf("scan error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	machineID := r.PathValue("id")

	if !s.admit(w, s.issueLimiter, machineID) {
		return
	}

	// The body is optional; an empty body means the default TTL.
	var req types.IssueTokenRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	ttl := s.defaultTokenTTL
	if req.ValidForSeconds > 0 {
		ttl = time.Duration(req.ValidForSeconds) * time.Second
	}

	encoded, tok, err := s.tokenService.IssueForMachine(r.Context(), machineID, ttl)
	if err != nil {
		if errors.Is(err, service.ErrUnknownMachine) {
			writeError(w, http.StatusBadRequest, "unknown_machine", err.Error())
			return
		}
		s.logger.Printf("issue token error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, types.IssueTokenResponse{
		Token:     encoded,
		MachineID: tok.MachineID,
		ExpiresIn: tok.ExpiresIn,
	})
}

func (s *Server) handleChainVerify(w http.ResponseWriter, r *http.Request) {
	records, err := s.attendance.ListAll(r.Context())
	if err != nil {
		s.logger.Printf("chain verify error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	chain := make([]ledger.Record, len(records))
	for i, rec := range records {
		chain[i] = ledger.Record{
			UserID:       rec.UserID,
			MachineID:    rec.MachineID,
			Kind:         rec.Kind,
			OccurredAtMs: rec.OccurredAtMs,
			Hash:         rec.Hash,
			PrevHash:     rec.PrevHash,
		}
	}

	report := ledger.VerifyChain(chain)

	resp := types.ChainVerifyResponse{
		OK:      report.OK,
		Checked: report.Checked,
		Detail:  report.Detail,
	}
	if !report.OK {
		failedAt := report.FailedAt
		resp.FailedAt = &failedAt
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// remoteHost strips the port so every connection from one client maps to
// one rate-limit key.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// admit runs one rate-limit check and writes the X-RateLimit headers.
// On denial it writes the 429 response and returns false.
func (s *Server) admit(w http.ResponseWriter, limiter *ratelimit.Limiter, key string) bool {
	if limiter == nil {
		return true
	}

	now := time.Now().UTC()
	d := limiter.Admit(key, now)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

	if d.Allowed {
		return true
	}

	retryAfter := int(math.Ceil(d.RetryAfter(now).Seconds()))
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: errorDetail{
		Code:              "rate_limited",
		Message:           fmt.Sprintf("too many requests, retry in %ds", retryAfter),
		RetryAfterSeconds: retryAfter,
	}})
	return false
}
