package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"tillpoint/internal/domain"
	"tillpoint/internal/dto"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory SessionRepository ──────────────────────────────────────────────
//
// The fake gives exactly the guarantees the real repository gives and no
// more: FindRegisterForUpdate takes a per-register lock that is held until
// the transaction ends, while session reads see the latest committed state
// at the moment they run. Nothing else serializes, so races the register
// lock does not cover stay visible to the tests.

type fakeSessionRepo struct {
	mu        sync.Mutex
	registers map[uuid.UUID]*model.Register
	sessions  map[uuid.UUID]*model.RegisterSession
	rowLocks  map[uuid.UUID]*sync.Mutex

	// beforeRegisterLock, when set, runs right before the register row lock
	// is acquired. Tests use it as a barrier to line goroutines up inside
	// the window between the first session read and the lock grant.
	beforeRegisterLock func()
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		registers: make(map[uuid.UUID]*model.Register),
		sessions:  make(map[uuid.UUID]*model.RegisterSession),
		rowLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *fakeSessionRepo) Transaction(_ context.Context, fn func(repository.SessionRepository) error) error {
	tx := &fakeSessionTx{fakeSessionRepo: r}
	defer tx.releaseLocks()
	return fn(tx)
}

// fakeSessionTx scopes row locks to one transaction.
type fakeSessionTx struct {
	*fakeSessionRepo
	held []*sync.Mutex
}

func (t *fakeSessionTx) FindRegisterForUpdate(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	t.mu.Lock()
	_, exists := t.registers[id]
	lock, ok := t.rowLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.rowLocks[id] = lock
	}
	t.mu.Unlock()
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}

	if t.beforeRegisterLock != nil {
		t.beforeRegisterLock()
	}
	lock.Lock()
	t.held = append(t.held, lock)
	return t.FindRegister(ctx, id)
}

func (t *fakeSessionTx) releaseLocks() {
	for _, lock := range t.held {
		lock.Unlock()
	}
	t.held = nil
}

func (r *fakeSessionRepo) FindRegister(_ context.Context, id uuid.UUID) (*model.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *reg
	return &copied, nil
}

func (r *fakeSessionRepo) FindRegisterForUpdate(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	return r.FindRegister(ctx, id)
}

func (r *fakeSessionRepo) UpdateRegister(_ context.Context, reg *model.Register) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *reg
	r.registers[reg.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Create(_ context.Context, s *model.RegisterSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, s *model.RegisterSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) FindOpenByRegister(_ context.Context, registerID uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RegisterID == registerID && s.IsOpen() {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindOpenByUser(_ context.Context, userID uuid.UUID) (*model.RegisterSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.OpenerID == userID && s.IsOpen() {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) List(_ context.Context, _, _ int) ([]model.RegisterSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RegisterSession
	for _, s := range r.sessions {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

// ── Other collaborators ──────────────────────────────────────────────────────

type fakeLedger struct {
	totals map[uuid.UUID]model.ChannelTotals
	voids  map[uuid.UUID]*domain.UnapprovedVoidSummary
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		totals: make(map[uuid.UUID]model.ChannelTotals),
		voids:  make(map[uuid.UUID]*domain.UnapprovedVoidSummary),
	}
}

func (l *fakeLedger) GetExpectedTotals(_ context.Context, sessionID uuid.UUID) (model.ChannelTotals, error) {
	return l.totals[sessionID], nil
}

func (l *fakeLedger) GetUnapprovedVoids(_ context.Context, sessionID uuid.UUID) (*domain.UnapprovedVoidSummary, error) {
	if s, ok := l.voids[sessionID]; ok {
		return s, nil
	}
	return &domain.UnapprovedVoidSummary{}, nil
}

type fakeBranches struct {
	branches map[uuid.UUID]*model.Branch
}

func (b *fakeBranches) FindByID(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	branch, ok := b.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return branch, nil
}

type fakeVerifier struct {
	supervisor *model.User
	pin        string
}

func (v *fakeVerifier) VerifySupervisorPIN(_ context.Context, userID uuid.UUID, pin string) (*model.User, error) {
	if v.supervisor != nil && userID == v.supervisor.ID && pin == v.pin {
		return v.supervisor, nil
	}
	return nil, &domain.UnauthorizedError{Msg: "supervisor credential rejected"}
}

type fakeSink struct {
	mu     sync.Mutex
	audits []domain.AuditEntry
	alerts []domain.Alert
	err    error
}

func (s *fakeSink) EnqueueAudit(_ context.Context, e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.audits = append(s.audits, e)
	return nil
}

func (s *fakeSink) EnqueueAlert(_ context.Context, a domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *fakeSink) alertKinds() []domain.AlertKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]domain.AlertKind, 0, len(s.alerts))
	for _, a := range s.alerts {
		kinds = append(kinds, a.Kind)
	}
	return kinds
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type sessionFixture struct {
	repo     *fakeSessionRepo
	ledger   *fakeLedger
	sink     *fakeSink
	verifier *fakeVerifier
	svc      *sessionService

	branch     *model.Branch
	registerID uuid.UUID
	cashierID  uuid.UUID
	managerID  uuid.UUID
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	denomRepo := newFakeDenominationRepo()
	seedCatalog(t, denomRepo, 1000, 500, 50)

	branch := &model.Branch{
		ID:              uuid.New(),
		Name:            "Test Branch",
		PettyCashAmount: dec(5000),
		OperatingHours:  model.Schedule{},
	}
	register := &model.Register{
		ID:             uuid.New(),
		BranchID:       branch.ID,
		RegisterNumber: 1,
		Name:           "Register 1",
		IsActive:       true,
	}

	repo := newFakeSessionRepo()
	repo.registers[register.ID] = register

	manager := &model.User{
		ID:       uuid.New(),
		Username: "manager",
		Role:     model.RoleManager,
		BranchID: branch.ID,
		IsActive: true,
	}

	f := &sessionFixture{
		repo:       repo,
		ledger:     newFakeLedger(),
		sink:       &fakeSink{},
		verifier:   &fakeVerifier{supervisor: manager, pin: "4321"},
		branch:     branch,
		registerID: register.ID,
		cashierID:  uuid.New(),
		managerID:  manager.ID,
	}

	svc := NewSessionService(
		repo,
		f.ledger,
		&fakeBranches{branches: map[uuid.UUID]*model.Branch{branch.ID: branch}},
		NewDenominationService(denomRepo),
		f.verifier,
		f.sink,
		t.TempDir(),
	)
	f.svc = svc.(*sessionService)
	return f
}

func (f *sessionFixture) openSession(t *testing.T) *dto.SessionResponse {
	t.Helper()
	resp, err := f.svc.Open(context.Background(), f.cashierID, dto.OpenSessionRequest{
		RegisterID:  f.registerID.String(),
		ShiftType:   model.ShiftMorning,
		OpeningCash: dec(5000),
		OpeningDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 5},
		},
		Coins: decimal.Zero,
	})
	require.NoError(t, err)
	return resp
}

func closeRequest() dto.CloseSessionRequest {
	// 1000×14 + 500×1 + 300 coins = 14800
	return dto.CloseSessionRequest{
		DeclaredCash:     dec(14800),
		DeclaredCard:     dec(8000),
		DeclaredQR:       dec(3000),
		DeclaredTransfer: dec(500),
		ClosingDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 14},
			{Value: dec(500), Count: 1},
		},
		Coins: dec(300),
	}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func TestOpenSessionHappyPath(t *testing.T) {
	f := newSessionFixture(t)

	resp := f.openSession(t)
	assert.Equal(t, model.SessionOpen, resp.Status)
	assert.True(t, resp.OpeningCash.Equal(dec(5000)))

	// Register back-reference points at the new session
	reg := f.repo.registers[f.registerID]
	require.NotNil(t, reg.CurrentSessionID)
	assert.Equal(t, resp.SessionID, reg.CurrentSessionID.String())

	require.Len(t, f.sink.audits, 1)
	assert.Equal(t, domain.AuditSessionOpened, f.sink.audits[0].Action)
}

func TestOpenSessionRejectsCountMismatch(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.svc.Open(context.Background(), f.cashierID, dto.OpenSessionRequest{
		RegisterID:  f.registerID.String(),
		ShiftType:   model.ShiftMorning,
		OpeningCash: dec(6000), // counted bills say 5000
		OpeningDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 5},
		},
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Empty(t, f.repo.sessions, "no session row on rejected open")
}

func TestOpenSessionRejectsSecondOpenOnRegister(t *testing.T) {
	f := newSessionFixture(t)
	f.openSession(t)

	_, err := f.svc.Open(context.Background(), uuid.New(), dto.OpenSessionRequest{
		RegisterID:  f.registerID.String(),
		ShiftType:   model.ShiftAfternoon,
		OpeningCash: dec(5000),
		OpeningDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 5},
		},
	})
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestOpenSessionRejectsInactiveRegister(t *testing.T) {
	f := newSessionFixture(t)
	f.repo.registers[f.registerID].IsActive = false

	_, err := f.svc.Open(context.Background(), f.cashierID, dto.OpenSessionRequest{
		RegisterID:  f.registerID.String(),
		ShiftType:   model.ShiftMorning,
		OpeningCash: dec(5000),
		OpeningDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 5},
		},
	})
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestOpenSessionUnknownRegisterIsNotFound(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Open(context.Background(), f.cashierID, dto.OpenSessionRequest{
		RegisterID:  uuid.New().String(),
		ShiftType:   model.ShiftMorning,
		OpeningCash: decimal.Zero,
	})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestConcurrentOpensExactlyOneSucceeds(t *testing.T) {
	f := newSessionFixture(t)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Open(context.Background(), uuid.New(), dto.OpenSessionRequest{
				RegisterID:  f.registerID.String(),
				ShiftType:   model.ShiftFullDay,
				OpeningCash: dec(5000),
				OpeningDenominations: []dto.DenominationCount{
					{Value: dec(1000), Count: 5},
				},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			var ise *domain.InvalidStateError
			require.ErrorAs(t, err, &ise)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.repo.sessions, 1)
}

// ── Close ────────────────────────────────────────────────────────────────────

func TestCloseSessionReconciliationArithmetic(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	// Sales during the shift (no opening cash in these figures)
	f.ledger.totals[sessionID] = model.ChannelTotals{
		Cash: dec(10000), Card: dec(8000), QR: dec(2900), Transfer: dec(500),
	}

	result, err := f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
	require.NoError(t, err)

	// expected cash = opening 5000 + ledger 10000
	assert.True(t, result.Expected.Cash.Equal(dec(15000)))
	assert.True(t, result.Discrepancy.Cash.Equal(dec(-200)))
	assert.True(t, result.Discrepancy.Card.IsZero())
	assert.True(t, result.Discrepancy.QR.Equal(dec(100)))
	assert.True(t, result.TotalDiscrepancy.Equal(dec(-100)))
	assert.Equal(t, model.SessionClosed, result.Status)

	// Register released
	assert.Nil(t, f.repo.registers[f.registerID].CurrentSessionID)

	// Persisted snapshot matches the response
	stored := f.repo.sessions[sessionID]
	require.NotNil(t, stored.DiscrepancyCash)
	assert.True(t, stored.DiscrepancyCash.Equal(dec(-200)))
	require.NotNil(t, stored.ClosingDenominations)
	assert.Len(t, stored.ClosingDenominations.Entries, 2)
}

func TestCloseSessionRejectsDeclaredCashMismatch(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	req := closeRequest()
	req.DeclaredCash = dec(15000) // bills count to 14800

	_, err := f.svc.Close(context.Background(), sessionID, f.cashierID, req)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	// Session untouched
	assert.Equal(t, model.SessionOpen, f.repo.sessions[sessionID].Status)
}

func TestCloseSessionEmitsPettyCashAlert(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	// Declared cash 4800 < branch minimum 5000
	req := dto.CloseSessionRequest{
		DeclaredCash: dec(4800),
		ClosingDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 4},
			{Value: dec(500), Count: 1},
		},
		Coins: dec(300),
	}

	result, err := f.svc.Close(context.Background(), sessionID, f.cashierID, req)
	require.NoError(t, err)

	require.NotNil(t, result.PettyCashWarning)
	assert.True(t, result.PettyCashWarning.Deficit.Equal(dec(200)))
	assert.Contains(t, f.sink.alertKinds(), domain.AlertPettyCashDeficit)
}

func TestCloseSessionEmitsAfterHoursAlert(t *testing.T) {
	f := newSessionFixture(t)
	f.branch.OperatingHours = model.Schedule{"1": {{Open: "08:00", Close: "18:00"}}}
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	// Monday 23:30, after closing time
	f.svc.now = func() time.Time { return time.Date(2026, 8, 31, 23, 30, 0, 0, time.UTC) }

	result, err := f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
	require.NoError(t, err)

	require.NotNil(t, result.AfterHoursWarning)
	assert.Equal(t, "Monday", result.AfterHoursWarning.Weekday)
	assert.Contains(t, f.sink.alertKinds(), domain.AlertAfterHoursClose)
}

func TestCloseSessionBlockedByUnapprovedVoids(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	f.ledger.voids[sessionID] = &domain.UnapprovedVoidSummary{
		HasUnapprovedVoids: true,
		Count:              2,
		Voids: []domain.VoidedSale{
			{SaleID: uuid.New(), SaleNumber: 41, Amount: dec(1200), Reason: "wrong item"},
			{SaleID: uuid.New(), SaleNumber: 45, Amount: dec(800), Reason: "customer left"},
		},
	}

	_, err := f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
	var blocked *domain.BlockedByUnapprovedVoidsError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 2, blocked.Summary.Count)
	assert.Len(t, blocked.Summary.Voids, 2)

	// Still open, register still held
	assert.Equal(t, model.SessionOpen, f.repo.sessions[sessionID].Status)
	assert.NotNil(t, f.repo.registers[f.registerID].CurrentSessionID)
}

func TestCloseSessionRejectsNonOpenSession(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	_, err := f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestConcurrentClosesExactlyOneSucceeds(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	// Barrier: both closes read the session as open, then race for the
	// register lock. The loser must fail the re-check under the lock.
	var ready sync.WaitGroup
	ready.Add(2)
	f.repo.beforeRegisterLock = func() {
		ready.Done()
		ready.Wait()
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Close(context.Background(), sessionID, uuid.New(), closeRequest())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			var ise *domain.InvalidStateError
			require.ErrorAs(t, err, &ise)
		}
	}
	assert.Equal(t, 1, succeeded)

	closedAudits := 0
	for _, e := range f.sink.audits {
		if e.Action == domain.AuditSessionClosed {
			closedAudits++
		}
	}
	assert.Equal(t, 1, closedAudits, "the losing close must not emit a second audit")
}

func TestCloseRacingForceCloseOnlyOneWins(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	var ready sync.WaitGroup
	ready.Add(2)
	f.repo.beforeRegisterLock = func() {
		ready.Done()
		ready.Wait()
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := f.svc.ForceClose(context.Background(), sessionID, f.managerID, dto.ForceCloseRequest{Reason: "shift never handed over"})
		errs <- err
	}()
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			var ise *domain.InvalidStateError
			require.ErrorAs(t, err, &ise)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, model.SessionClosed, f.repo.sessions[sessionID].Status)
	assert.Nil(t, f.repo.registers[f.registerID].CurrentSessionID)
}

// ── ForceClose ───────────────────────────────────────────────────────────────

func TestForceCloseSkipsReconciliationButHonorsVoidGate(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	f.ledger.voids[sessionID] = &domain.UnapprovedVoidSummary{HasUnapprovedVoids: true, Count: 1}
	_, err := f.svc.ForceClose(context.Background(), sessionID, f.managerID, dto.ForceCloseRequest{Reason: "cashier walked out"})
	var blocked *domain.BlockedByUnapprovedVoidsError
	require.ErrorAs(t, err, &blocked)

	delete(f.ledger.voids, sessionID)
	resp, err := f.svc.ForceClose(context.Background(), sessionID, f.managerID, dto.ForceCloseRequest{Reason: "cashier walked out"})
	require.NoError(t, err)

	assert.Equal(t, model.SessionClosed, resp.Status)
	assert.Nil(t, resp.Declared, "force close records no reconciliation")
	require.NotNil(t, resp.ClosingNotes)
	assert.Equal(t, "cashier walked out", *resp.ClosingNotes)
	assert.Nil(t, f.repo.registers[f.registerID].CurrentSessionID)

	stored := f.repo.sessions[sessionID]
	assert.Nil(t, stored.DeclaredCash)
	assert.Nil(t, stored.ExpectedCash)
}

// ── Reopen ───────────────────────────────────────────────────────────────────

func (f *sessionFixture) closedSession(t *testing.T) uuid.UUID {
	t.Helper()
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)
	_, err := f.svc.Close(context.Background(), sessionID, f.cashierID, closeRequest())
	require.NoError(t, err)
	return sessionID
}

func TestReopenHappyPath(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	resp, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "forgot to register an expense",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "4321",
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionReopened, resp.Status)
	require.NotNil(t, resp.ReopenReason)
	assert.Equal(t, "forgot to register an expense", *resp.ReopenReason)

	// Register held again
	reg := f.repo.registers[f.registerID]
	require.NotNil(t, reg.CurrentSessionID)
	assert.Equal(t, sessionID, *reg.CurrentSessionID)

	// Audit carries the supervisor; the alert is high priority
	last := f.sink.audits[len(f.sink.audits)-1]
	assert.Equal(t, domain.AuditSessionReopened, last.Action)
	require.NotNil(t, last.SupervisorID)
	assert.Equal(t, f.managerID, *last.SupervisorID)

	require.NotEmpty(t, f.sink.alerts)
	reopenAlert := f.sink.alerts[len(f.sink.alerts)-1]
	assert.Equal(t, domain.AlertSessionReopened, reopenAlert.Kind)
	assert.True(t, reopenAlert.HighPriority)
}

func TestReopenChecksStateBeforeReasonAndCredential(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)
	sessionID := uuid.MustParse(opened.SessionID)

	// Session is open, reason too short, PIN wrong: state wins
	_, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "short",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "wrong",
	})
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestReopenRejectsShortReasonBeforeCredential(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	// 9 characters, one below the minimum; PIN is also wrong but the reason
	// check comes first
	_, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "123456789",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "wrong",
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestReopenReasonLengthCountsCharactersNotBytes(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	// 9 characters but 10 bytes: the accented rune must not pad the length.
	// PIN is correct, so only the reason check can reject this.
	_, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "cajón mal",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "4321",
	})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, model.SessionClosed, f.repo.sessions[sessionID].Status)
}

func TestReopenRejectsBadPIN(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	_, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "forgot to register an expense",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "0000",
	})
	var ue *domain.UnauthorizedError
	require.ErrorAs(t, err, &ue)

	assert.Equal(t, model.SessionClosed, f.repo.sessions[sessionID].Status)
}

func TestReopenRejectedWhenRegisterBusyWithNewShift(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	// A new shift opened on the same register in the meantime
	f.openSession(t)

	_, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "forgot to register an expense",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "4321",
	})
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestReopenedSessionClosesAgainOverwritingSnapshot(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	_, err := f.svc.Reopen(context.Background(), sessionID, f.cashierID, dto.ReopenSessionRequest{
		Reason:        "forgot to register an expense",
		SupervisorID:  f.managerID.String(),
		SupervisorPIN: "4321",
	})
	require.NoError(t, err)

	// Second close with a corrected count: 1000×15 = 15000
	req := dto.CloseSessionRequest{
		DeclaredCash: dec(15000),
		DeclaredCard: dec(8000),
		DeclaredQR:   dec(3000),
		ClosingDenominations: []dto.DenominationCount{
			{Value: dec(1000), Count: 15},
		},
	}
	f.ledger.totals[sessionID] = model.ChannelTotals{Cash: dec(10000), Card: dec(8000), QR: dec(3000)}

	result, err := f.svc.Close(context.Background(), sessionID, f.cashierID, req)
	require.NoError(t, err)
	assert.True(t, result.Discrepancy.Cash.IsZero())
	assert.True(t, result.Discrepancy.QR.IsZero())

	stored := f.repo.sessions[sessionID]
	assert.Equal(t, model.SessionClosed, stored.Status)
	assert.True(t, stored.DeclaredCash.Equal(dec(15000)))
}

// ── Misc ─────────────────────────────────────────────────────────────────────

func TestSinkFailureNeverFailsTheTransition(t *testing.T) {
	f := newSessionFixture(t)
	f.sink.err = assert.AnError

	resp := f.openSession(t)
	assert.Equal(t, model.SessionOpen, resp.Status)
	assert.Len(t, f.repo.sessions, 1)
}

func TestActiveReturnsNilWithoutOpenSession(t *testing.T) {
	f := newSessionFixture(t)
	resp, err := f.svc.Active(context.Background(), f.cashierID)
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestDeactivateRegisterRefusedWhileSessionOpen(t *testing.T) {
	f := newSessionFixture(t)
	f.openSession(t)

	err := f.svc.DeactivateRegister(context.Background(), f.registerID)
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.True(t, f.repo.registers[f.registerID].IsActive)
}

func TestDeactivateRegisterSucceedsWhenIdle(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.svc.DeactivateRegister(context.Background(), f.registerID))
	assert.False(t, f.repo.registers[f.registerID].IsActive)
}

func TestReportRefusedForSessionWithoutClosing(t *testing.T) {
	f := newSessionFixture(t)
	opened := f.openSession(t)

	_, err := f.svc.Report(context.Background(), uuid.MustParse(opened.SessionID))
	var ise *domain.InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestReportWritesPDFForClosedSession(t *testing.T) {
	f := newSessionFixture(t)
	sessionID := f.closedSession(t)

	path, err := f.svc.Report(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Contains(t, path, sessionID.String())
}
