package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"tillpoint/internal/domain"
	"tillpoint/internal/dto"
	"tillpoint/internal/infra"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const minReopenReasonLen = 10

// EventSink receives audit entries and alerts for out-of-band delivery.
// Emission is at-least-once: a sink failure after a committed transition is
// logged, never rolled back and never retried silently by the caller.
type EventSink interface {
	EnqueueAudit(ctx context.Context, e domain.AuditEntry) error
	EnqueueAlert(ctx context.Context, a domain.Alert) error
}

type SessionService interface {
	Open(ctx context.Context, openerID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	Close(ctx context.Context, sessionID, closerID uuid.UUID, req dto.CloseSessionRequest) (*dto.ClosingResult, error)
	ForceClose(ctx context.Context, sessionID, actorID uuid.UUID, req dto.ForceCloseRequest) (*dto.SessionResponse, error)
	Reopen(ctx context.Context, sessionID, requesterID uuid.UUID, req dto.ReopenSessionRequest) (*dto.SessionResponse, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error)
	Active(ctx context.Context, userID uuid.UUID) (*dto.SessionResponse, error)
	List(ctx context.Context, page, limit int) ([]dto.SessionResponse, int64, error)
	UnapprovedVoids(ctx context.Context, sessionID uuid.UUID) (*domain.UnapprovedVoidSummary, error)
	// Report renders the closing report PDF and returns its path. Only
	// sessions with closing figures have a report.
	Report(ctx context.Context, sessionID uuid.UUID) (string, error)
	// DeactivateRegister refuses while the register has an open session.
	DeactivateRegister(ctx context.Context, registerID uuid.UUID) error
}

type sessionService struct {
	repo     repository.SessionRepository
	ledger   repository.LedgerReader
	branches repository.BranchRepository
	denoms   DenominationService
	verifier SupervisorVerifier
	sink     EventSink
	pdfPath  string

	now func() time.Time
}

func NewSessionService(
	repo repository.SessionRepository,
	ledger repository.LedgerReader,
	branches repository.BranchRepository,
	denoms DenominationService,
	verifier SupervisorVerifier,
	sink EventSink,
	pdfPath string,
) SessionService {
	return &sessionService{
		repo:     repo,
		ledger:   ledger,
		branches: branches,
		denoms:   denoms,
		verifier: verifier,
		sink:     sink,
		pdfPath:  pdfPath,
		now:      time.Now,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *sessionService) Open(ctx context.Context, openerID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	registerID, err := uuid.Parse(req.RegisterID)
	if err != nil {
		return nil, domain.Validationf("invalid register_id")
	}

	// The declared opening float must match the counted bills. This is
	// checked before touching the register so a fat-fingered count never
	// holds the row lock.
	total, snapshot, err := s.denoms.ComputeTotal(ctx, req.OpeningDenominations, req.Coins)
	if err != nil {
		return nil, err
	}
	if !total.Equal(req.OpeningCash) {
		return nil, domain.Validationf(
			"opening_cash %s does not match denomination total %s",
			req.OpeningCash.String(), total.String())
	}

	var sess *model.RegisterSession
	err = s.repo.Transaction(ctx, func(r repository.SessionRepository) error {
		reg, err := r.FindRegisterForUpdate(ctx, registerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "register"}
			}
			return err
		}
		if !reg.IsActive {
			return &domain.InvalidStateError{Msg: "register is inactive"}
		}

		// One active session per register. The status query is the source
		// of truth; CurrentSessionID is only its cache.
		if existing, err := r.FindOpenByRegister(ctx, registerID); err != nil {
			return err
		} else if existing != nil {
			return &domain.InvalidStateError{Msg: "register already has an open session"}
		}

		sess = &model.RegisterSession{
			RegisterID:           reg.ID,
			BranchID:             reg.BranchID,
			OpenerID:             openerID,
			ShiftType:            req.ShiftType,
			Status:               model.SessionOpen,
			OpenedAt:             s.now(),
			OpeningCash:          req.OpeningCash,
			OpeningDenominations: snapshot,
			OpeningNotes:         req.Notes,
		}
		if err := r.Create(ctx, sess); err != nil {
			return err
		}

		reg.CurrentSessionID = &sess.ID
		return r.UpdateRegister(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, domain.AuditEntry{
		Action:     domain.AuditSessionOpened,
		SessionID:  sess.ID,
		RegisterID: sess.RegisterID,
		BranchID:   sess.BranchID,
		ActorID:    openerID,
		After:      stateSnapshot(sess),
		At:         sess.OpenedAt,
	})

	resp := toSessionResponse(sess)
	return &resp, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Close(ctx context.Context, sessionID, closerID uuid.UUID, req dto.CloseSessionRequest) (*dto.ClosingResult, error) {
	var (
		result *dto.ClosingResult
		sess   *model.RegisterSession
		before json.RawMessage
	)

	err := s.repo.Transaction(ctx, func(r repository.SessionRepository) error {
		var err error
		sess, err = r.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "session"}
			}
			return err
		}
		if !sess.IsOpen() {
			return &domain.InvalidStateError{Msg: "session is not open"}
		}

		// Lock the register for the duration: a concurrent close or open on
		// the same register must not interleave with the ledger reads below.
		reg, err := r.FindRegisterForUpdate(ctx, sess.RegisterID)
		if err != nil {
			return err
		}

		// Re-read under the lock. The first read ran before the lock was
		// granted, so a racing close may have committed in between; without
		// this check both would close and the loser would silently overwrite
		// the winner's reconciliation snapshot.
		sess, err = r.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsOpen() {
			return &domain.InvalidStateError{Msg: "session is not open"}
		}
		before = stateSnapshot(sess)

		// Void gate — hard business rule: a register never closes while a
		// void of its own sales lacks manager/owner sign-off.
		voids, err := s.ledger.GetUnapprovedVoids(ctx, sessionID)
		if err != nil {
			return err
		}
		if voids.HasUnapprovedVoids {
			return &domain.BlockedByUnapprovedVoidsError{Summary: *voids}
		}

		// Blind-count contract: the cash figure reconciliation uses is the
		// one re-derived from the counted bills, not the raw client number.
		// Both must agree, so a client-side arithmetic bug cannot masquerade
		// as a drawer discrepancy.
		countedCash, snapshot, err := s.denoms.ComputeTotal(ctx, req.ClosingDenominations, req.Coins)
		if err != nil {
			return err
		}
		if !countedCash.Equal(req.DeclaredCash) {
			return domain.Validationf(
				"declared_cash %s does not match denomination total %s",
				req.DeclaredCash.String(), countedCash.String())
		}

		declared := model.ChannelTotals{
			Cash:     countedCash,
			Card:     req.DeclaredCard,
			QR:       req.DeclaredQR,
			Transfer: req.DeclaredTransfer,
		}

		sums, err := s.ledger.GetExpectedTotals(ctx, sessionID)
		if err != nil {
			return err
		}
		expected := sums
		expected.Cash = sess.OpeningCash.Add(sums.Cash)

		branch, err := s.branches.FindByID(ctx, sess.BranchID)
		if err != nil {
			return err
		}

		closedAt := s.now()
		recon := Reconcile(declared, expected, branch, closedAt)

		applyClosing(sess, declared, expected, recon.Discrepancy)
		sess.Status = model.SessionClosed
		sess.ClosedAt = &closedAt
		sess.CloserID = &closerID
		sess.ClosingDenominations = &snapshot
		sess.ClosingNotes = req.Notes
		if err := r.Update(ctx, sess); err != nil {
			return err
		}

		reg.CurrentSessionID = nil
		if err := r.UpdateRegister(ctx, reg); err != nil {
			return err
		}

		result = &dto.ClosingResult{
			SessionID:         sess.ID.String(),
			Status:            sess.Status,
			Declared:          toChannelAmounts(declared),
			Expected:          toChannelAmounts(expected),
			Discrepancy:       toChannelAmounts(recon.Discrepancy),
			TotalDiscrepancy:  recon.TotalDiscrepancy,
			PettyCashWarning:  recon.PettyCash,
			AfterHoursWarning: recon.AfterHours,
			ClosedAt:          closedAt.Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, domain.AuditEntry{
		Action:     domain.AuditSessionClosed,
		SessionID:  sess.ID,
		RegisterID: sess.RegisterID,
		BranchID:   sess.BranchID,
		ActorID:    closerID,
		Before:     before,
		After:      stateSnapshot(sess),
		At:         *sess.ClosedAt,
	})
	s.emitClosingAlerts(ctx, sess, result)

	return result, nil
}

// ── ForceClose ────────────────────────────────────────────────────────────────

// ForceClose is the escalation path for abandoned sessions: no fresh blind
// count, no reconciliation, but the void gate still applies.
func (s *sessionService) ForceClose(ctx context.Context, sessionID, actorID uuid.UUID, req dto.ForceCloseRequest) (*dto.SessionResponse, error) {
	var (
		sess   *model.RegisterSession
		before json.RawMessage
	)

	err := s.repo.Transaction(ctx, func(r repository.SessionRepository) error {
		var err error
		sess, err = r.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "session"}
			}
			return err
		}
		if !sess.IsOpen() {
			return &domain.InvalidStateError{Msg: "session is not open"}
		}

		reg, err := r.FindRegisterForUpdate(ctx, sess.RegisterID)
		if err != nil {
			return err
		}

		// Same re-read as the regular close: the state check above ran
		// before the lock was granted.
		sess, err = r.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !sess.IsOpen() {
			return &domain.InvalidStateError{Msg: "session is not open"}
		}
		before = stateSnapshot(sess)

		voids, err := s.ledger.GetUnapprovedVoids(ctx, sessionID)
		if err != nil {
			return err
		}
		if voids.HasUnapprovedVoids {
			return &domain.BlockedByUnapprovedVoidsError{Summary: *voids}
		}

		closedAt := s.now()
		reason := req.Reason
		sess.Status = model.SessionClosed
		sess.ClosedAt = &closedAt
		sess.CloserID = &actorID
		sess.ClosingNotes = &reason
		if err := r.Update(ctx, sess); err != nil {
			return err
		}

		reg.CurrentSessionID = nil
		return r.UpdateRegister(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, domain.AuditEntry{
		Action:     domain.AuditSessionForceClosed,
		SessionID:  sess.ID,
		RegisterID: sess.RegisterID,
		BranchID:   sess.BranchID,
		ActorID:    actorID,
		Reason:     req.Reason,
		Before:     before,
		After:      stateSnapshot(sess),
		At:         *sess.ClosedAt,
	})

	resp := toSessionResponse(sess)
	return &resp, nil
}

// ── Reopen ────────────────────────────────────────────────────────────────────

// Reopen is the authorization gate. Precondition order matters — each is a
// distinct failure mode: state, then reason, then credential.
func (s *sessionService) Reopen(ctx context.Context, sessionID, requesterID uuid.UUID, req dto.ReopenSessionRequest) (*dto.SessionResponse, error) {
	supervisorID, err := uuid.Parse(req.SupervisorID)
	if err != nil {
		return nil, domain.Validationf("invalid supervisor_id")
	}

	var (
		sess       *model.RegisterSession
		before     json.RawMessage
		supervisor *model.User
	)

	err = s.repo.Transaction(ctx, func(r repository.SessionRepository) error {
		var err error
		sess, err = r.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "session"}
			}
			return err
		}
		if sess.Status != model.SessionClosed {
			return &domain.InvalidStateError{Msg: "only a closed session can be reopened"}
		}
		before = stateSnapshot(sess)

		if utf8.RuneCountInString(req.Reason) < minReopenReasonLen {
			return domain.Validationf("reopen reason must be at least %d characters", minReopenReasonLen)
		}

		supervisor, err = s.verifier.VerifySupervisorPIN(ctx, supervisorID, req.SupervisorPIN)
		if err != nil {
			return err
		}

		reg, err := r.FindRegisterForUpdate(ctx, sess.RegisterID)
		if err != nil {
			return err
		}
		// The register may have been reopened for a new shift in the
		// meantime; a register cannot carry two active sessions.
		if existing, err := r.FindOpenByRegister(ctx, sess.RegisterID); err != nil {
			return err
		} else if existing != nil {
			return &domain.InvalidStateError{Msg: "register already has an open session"}
		}

		reopenedAt := s.now()
		reason := req.Reason
		sess.Status = model.SessionReopened
		sess.ReopenedAt = &reopenedAt
		sess.ReopenReason = &reason
		if err := r.Update(ctx, sess); err != nil {
			return err
		}

		reg.CurrentSessionID = &sess.ID
		return r.UpdateRegister(ctx, reg)
	})
	if err != nil {
		return nil, err
	}

	// Highest-criticality transition in the subsystem: the audit entry and
	// the owner alert go out after commit; a delivery failure stands the
	// transition and is logged (at-least-once downstream).
	supID := supervisor.ID
	s.emitAudit(ctx, domain.AuditEntry{
		Action:       domain.AuditSessionReopened,
		SessionID:    sess.ID,
		RegisterID:   sess.RegisterID,
		BranchID:     sess.BranchID,
		ActorID:      requesterID,
		SupervisorID: &supID,
		Reason:       req.Reason,
		Before:       before,
		After:        stateSnapshot(sess),
		At:           *sess.ReopenedAt,
	})
	s.emitAlert(ctx, domain.Alert{
		Kind:         domain.AlertSessionReopened,
		BranchID:     sess.BranchID,
		SessionID:    sess.ID,
		HighPriority: true,
		Subject:      "Register session reopened",
		Body: fmt.Sprintf("Session %s was reopened by supervisor %s. Reason: %s",
			sess.ID, supervisor.Username, req.Reason),
		At: *sess.ReopenedAt,
	})

	resp := toSessionResponse(sess)
	return &resp, nil
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Get(ctx context.Context, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "session"}
		}
		return nil, err
	}
	resp := toSessionResponse(sess)
	return &resp, nil
}

func (s *sessionService) Active(ctx context.Context, userID uuid.UUID) (*dto.SessionResponse, error) {
	sess, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}
	resp := toSessionResponse(sess)
	return &resp, nil
}

func (s *sessionService) List(ctx context.Context, page, limit int) ([]dto.SessionResponse, int64, error) {
	sessions, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	return out, total, nil
}

// UnapprovedVoids is the read-only gate check the UI polls before offering
// the close action. No lock — only the stateful transitions serialize.
func (s *sessionService) UnapprovedVoids(ctx context.Context, sessionID uuid.UUID) (*domain.UnapprovedVoidSummary, error) {
	if _, err := s.repo.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{Entity: "session"}
		}
		return nil, err
	}
	return s.ledger.GetUnapprovedVoids(ctx, sessionID)
}

func (s *sessionService) Report(ctx context.Context, sessionID uuid.UUID) (string, error) {
	sess, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &domain.NotFoundError{Entity: "session"}
		}
		return "", err
	}
	if sess.ClosedAt == nil {
		return "", &domain.InvalidStateError{Msg: "session has no closing to report"}
	}
	reg, err := s.repo.FindRegister(ctx, sess.RegisterID)
	if err != nil {
		return "", err
	}
	branch, err := s.branches.FindByID(ctx, sess.BranchID)
	if err != nil {
		return "", err
	}
	return infra.BuildClosingReport(s.pdfPath, sess, reg, branch)
}

func (s *sessionService) DeactivateRegister(ctx context.Context, registerID uuid.UUID) error {
	return s.repo.Transaction(ctx, func(r repository.SessionRepository) error {
		reg, err := r.FindRegisterForUpdate(ctx, registerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &domain.NotFoundError{Entity: "register"}
			}
			return err
		}
		if reg.CurrentSessionID != nil {
			return &domain.InvalidStateError{Msg: "register has an open session"}
		}
		reg.IsActive = false
		return r.UpdateRegister(ctx, reg)
	})
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func applyClosing(s *model.RegisterSession, declared, expected, disc model.ChannelTotals) {
	s.DeclaredCash, s.DeclaredCard, s.DeclaredQR, s.DeclaredTransfer =
		&declared.Cash, &declared.Card, &declared.QR, &declared.Transfer
	s.ExpectedCash, s.ExpectedCard, s.ExpectedQR, s.ExpectedTransfer =
		&expected.Cash, &expected.Card, &expected.QR, &expected.Transfer
	s.DiscrepancyCash, s.DiscrepancyCard, s.DiscrepancyQR, s.DiscrepancyTransfer =
		&disc.Cash, &disc.Card, &disc.QR, &disc.Transfer
}

func (s *sessionService) emitClosingAlerts(ctx context.Context, sess *model.RegisterSession, result *dto.ClosingResult) {
	if w := result.PettyCashWarning; w != nil {
		s.emitAlert(ctx, domain.Alert{
			Kind:      domain.AlertPettyCashDeficit,
			BranchID:  sess.BranchID,
			SessionID: sess.ID,
			Subject:   "Petty cash below branch minimum",
			Body: fmt.Sprintf("Declared cash %s is below the required float %s (deficit %s). The next shift may be unable to make change.",
				w.DeclaredCash, w.PettyCashRequired, w.Deficit),
			At: *sess.ClosedAt,
		})
	}
	if w := result.AfterHoursWarning; w != nil {
		s.emitAlert(ctx, domain.Alert{
			Kind:      domain.AlertAfterHoursClose,
			BranchID:  sess.BranchID,
			SessionID: sess.ID,
			Subject:   "Register closed outside operating hours",
			Body:      fmt.Sprintf("Session %s was closed at %s (%s), outside the branch schedule.", sess.ID, w.ClosedAt, w.Weekday),
			At:        *sess.ClosedAt,
		})
	}
}

func (s *sessionService) emitAudit(ctx context.Context, e domain.AuditEntry) {
	if err := s.sink.EnqueueAudit(ctx, e); err != nil {
		log.Error().Err(err).
			Str("action", string(e.Action)).
			Str("session_id", e.SessionID.String()).
			Msg("audit emission failed; transition stands")
	}
}

func (s *sessionService) emitAlert(ctx context.Context, a domain.Alert) {
	if err := s.sink.EnqueueAlert(ctx, a); err != nil {
		log.Error().Err(err).
			Str("kind", string(a.Kind)).
			Str("session_id", a.SessionID.String()).
			Msg("alert emission failed; transition stands")
	}
}

func stateSnapshot(s *model.RegisterSession) json.RawMessage {
	raw, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}

func toChannelAmounts(t model.ChannelTotals) dto.ChannelAmounts {
	return dto.ChannelAmounts{
		Cash:     t.Cash,
		Card:     t.Card,
		QR:       t.QR,
		Transfer: t.Transfer,
		Total:    t.Sum(),
	}
}

func toSessionResponse(s *model.RegisterSession) dto.SessionResponse {
	resp := dto.SessionResponse{
		SessionID:    s.ID.String(),
		RegisterID:   s.RegisterID.String(),
		BranchID:     s.BranchID.String(),
		Status:       s.Status,
		ShiftType:    s.ShiftType,
		OpenerID:     s.OpenerID.String(),
		OpeningCash:  s.OpeningCash,
		OpeningNotes: s.OpeningNotes,
		ClosingNotes: s.ClosingNotes,
		ReopenReason: s.ReopenReason,
		OpenedAt:     s.OpenedAt.Format(time.RFC3339),
	}
	if s.CloserID != nil {
		v := s.CloserID.String()
		resp.CloserID = &v
	}
	if s.ClosedAt != nil {
		v := s.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &v
	}
	if s.ReopenedAt != nil {
		v := s.ReopenedAt.Format(time.RFC3339)
		resp.ReopenedAt = &v
	}
	if s.DeclaredCash != nil && s.DeclaredCard != nil && s.DeclaredQR != nil && s.DeclaredTransfer != nil {
		declared := toChannelAmounts(model.ChannelTotals{
			Cash: *s.DeclaredCash, Card: *s.DeclaredCard, QR: *s.DeclaredQR, Transfer: *s.DeclaredTransfer,
		})
		resp.Declared = &declared
	}
	if s.ExpectedCash != nil && s.ExpectedCard != nil && s.ExpectedQR != nil && s.ExpectedTransfer != nil {
		expected := toChannelAmounts(model.ChannelTotals{
			Cash: *s.ExpectedCash, Card: *s.ExpectedCard, QR: *s.ExpectedQR, Transfer: *s.ExpectedTransfer,
		})
		resp.Expected = &expected
	}
	if s.DiscrepancyCash != nil && s.DiscrepancyCard != nil && s.DiscrepancyQR != nil && s.DiscrepancyTransfer != nil {
		disc := toChannelAmounts(model.ChannelTotals{
			Cash: *s.DiscrepancyCash, Card: *s.DiscrepancyCard, QR: *s.DiscrepancyQR, Transfer: *s.DiscrepancyTransfer,
		})
		resp.Discrepancy = &disc
	}
	return resp
}
