package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/internal/accounts"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

type stubAccountsRepo struct {
	byAccount map[string]*models.ConnectedAccount
	createErr error
}

func newStubAccountsRepo(rows ...*models.ConnectedAccount) *stubAccountsRepo {
	repo := &stubAccountsRepo{byAccount: map[string]*models.ConnectedAccount{}}
	for _, row := range rows {
		repo.byAccount[row.AccountID] = row
	}
	return repo
}

func (s *stubAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository { return s }

func (s *stubAccountsRepo) Create(ctx context.Context, account *models.ConnectedAccount) error {
	if s.createErr != nil {
		return s.createErr
	}
	account.ID = uuid.New()
	s.byAccount[account.AccountID] = account
	return nil
}

func (s *stubAccountsRepo) Update(ctx context.Context, account *models.ConnectedAccount) error {
	s.byAccount[account.AccountID] = account
	return nil
}

func (s *stubAccountsRepo) FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	for _, account := range s.byAccount {
		if account.ProviderID == providerID {
			return account, nil
		}
	}
	return nil, nil
}

func (s *stubAccountsRepo) FindByAccountID(ctx context.Context, accountID string) (*models.ConnectedAccount, error) {
	return s.byAccount[accountID], nil
}

type stubProviders struct {
	rows map[uuid.UUID]*models.Provider
}

func (s *stubProviders) FindByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	return s.rows[id], nil
}

type stubProcessor struct {
	accountCalls int
	accountKeys  []string
	linkCalls    int
	linkKeys     []string
	getCalls     int
	account      *stripe.Account
	link         *stripe.AccountLink
	remote       *stripe.Account
}

func (s *stubProcessor) CreateAccount(ctx context.Context, params pkgstripe.AccountCreateParams) (*stripe.Account, error) {
	s.accountCalls++
	s.accountKeys = append(s.accountKeys, params.IdempotencyKey)
	return s.account, nil
}

func (s *stubProcessor) CreateAccountLink(ctx context.Context, params pkgstripe.AccountLinkParams) (*stripe.AccountLink, error) {
	s.linkCalls++
	s.linkKeys = append(s.linkKeys, params.IdempotencyKey)
	return s.link, nil
}

func (s *stubProcessor) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	s.getCalls++
	return s.remote, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc       *Service
	repo      *stubAccountsRepo
	processor *stubProcessor
	outbox    *stubOutbox
	provider  *models.Provider
}

func newFixture(t *testing.T, rows ...*models.ConnectedAccount) *fixture {
	t.Helper()

	provider := &models.Provider{
		ID:          uuid.New(),
		DisplayName: "Handy Helpers",
		Email:       "pro@example.com",
		CountryCode: "US",
		Active:      true,
	}
	for _, row := range rows {
		row.ProviderID = provider.ID
	}

	repo := newStubAccountsRepo(rows...)
	accountsSvc, err := accounts.NewService(accounts.ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("accounts service: %v", err)
	}

	processor := &stubProcessor{
		account: &stripe.Account{ID: "acct_new"},
		link: &stripe.AccountLink{
			URL:       "https://onboard.example/new",
			ExpiresAt: time.Now().Add(15 * time.Minute).Unix(),
		},
		remote: &stripe.Account{ID: "acct_new"},
	}
	emitter := &stubOutbox{}

	svc, err := NewService(ServiceParams{
		Accounts:          accountsSvc,
		Providers:         &stubProviders{rows: map[uuid.UUID]*models.Provider{provider.ID: provider}},
		Processor:         processor,
		TransactionRunner: stubTxRunner{},
		Outbox:            emitter,
		Payments:          config.PaymentsConfig{LinkExpirySkew: 30 * time.Second},
	})
	if err != nil {
		t.Fatalf("onboarding service: %v", err)
	}

	return &fixture{svc: svc, repo: repo, processor: processor, outbox: emitter, provider: provider}
}

func TestStartOnboardingOpensAccountAndIssuesLink(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.StartOnboarding(context.Background(), f.provider.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.processor.accountCalls != 1 || f.processor.linkCalls != 1 {
		t.Fatalf("expected one account and one link call, got %d/%d", f.processor.accountCalls, f.processor.linkCalls)
	}
	if result.AccountID != "acct_new" || result.Reused {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Status != enums.OnboardingStatusLinkIssued {
		t.Fatalf("expected link_issued, got %s", result.Status)
	}

	stored := f.repo.byAccount["acct_new"]
	if stored == nil || stored.OnboardingURL == nil || *stored.OnboardingURL != result.URL {
		t.Fatalf("expected link persisted on account row, got %+v", stored)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventAccountOnboardingStarted {
		t.Fatalf("expected onboarding started event, got %+v", f.outbox.events)
	}
}

func TestStartOnboardingReusesOpenLink(t *testing.T) {
	url := "https://onboard.example/open"
	expires := time.Now().Add(10 * time.Minute).UTC()
	f := newFixture(t, &models.ConnectedAccount{
		AccountID:              "acct_1",
		OnboardingStatus:       enums.OnboardingStatusLinkIssued,
		OnboardingURL:          &url,
		OnboardingURLExpiresAt: &expires,
	})

	result, err := f.svc.StartOnboarding(context.Background(), f.provider.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Reused || result.URL != url {
		t.Fatalf("expected stored link reused, got %+v", result)
	}
	if f.processor.accountCalls != 0 || f.processor.linkCalls != 0 {
		t.Fatal("expected no processor calls for an open link")
	}
	if len(f.outbox.events) != 0 {
		t.Fatal("expected no events when reusing a link")
	}
}

func TestStartOnboardingRefreshesExpiredLink(t *testing.T) {
	url := "https://onboard.example/stale"
	expires := time.Now().Add(-time.Minute).UTC()
	f := newFixture(t, &models.ConnectedAccount{
		AccountID:              "acct_1",
		OnboardingStatus:       enums.OnboardingStatusLinkIssued,
		OnboardingURL:          &url,
		OnboardingURLExpiresAt: &expires,
	})

	result, err := f.svc.StartOnboarding(context.Background(), f.provider.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.processor.accountCalls != 0 {
		t.Fatal("expected existing processor account to be reused")
	}
	if f.processor.linkCalls != 1 {
		t.Fatalf("expected a fresh link, got %d calls", f.processor.linkCalls)
	}
	if result.URL != "https://onboard.example/new" || result.Reused {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestStartOnboardingRetryReplaysAccountCreation(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("connection reset")

	if _, err := f.svc.StartOnboarding(context.Background(), f.provider.ID); err == nil {
		t.Fatal("expected interrupted start to fail")
	}

	// The retry hits the processor again, but with the same idempotency key,
	// so it replays the first account instead of opening an orphaned second.
	f.repo.createErr = nil
	result, err := f.svc.StartOnboarding(context.Background(), f.provider.ID)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if result.AccountID != "acct_new" {
		t.Fatalf("unexpected account %q", result.AccountID)
	}
	if f.processor.accountCalls != 2 {
		t.Fatalf("expected two creation attempts, got %d", f.processor.accountCalls)
	}
	if f.processor.accountKeys[0] == "" {
		t.Fatal("expected an idempotency key on account creation")
	}
	if f.processor.accountKeys[0] != f.processor.accountKeys[1] {
		t.Fatalf("expected retry to reuse the creation key, got %q then %q",
			f.processor.accountKeys[0], f.processor.accountKeys[1])
	}
}

func TestLinkIssueKeyRollsWithStoredExpiry(t *testing.T) {
	account := &models.ConnectedAccount{AccountID: "acct_1"}
	initial := linkIssueKey(account)

	expires := time.Unix(1900000000, 0).UTC()
	account.OnboardingURLExpiresAt = &expires
	refreshed := linkIssueKey(account)

	if initial == "" || refreshed == "" {
		t.Fatal("expected non-empty link issuance keys")
	}
	if initial == refreshed {
		t.Fatalf("expected refresh to roll the key, got %q twice", initial)
	}
	if again := linkIssueKey(account); again != refreshed {
		t.Fatalf("expected deterministic key for a given expiry, got %q and %q", refreshed, again)
	}
}

func TestStartOnboardingRejectsCompletedAndInactive(t *testing.T) {
	f := newFixture(t, &models.ConnectedAccount{
		AccountID:        "acct_1",
		OnboardingStatus: enums.OnboardingStatusComplete,
	})

	_, err := f.svc.StartOnboarding(context.Background(), f.provider.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for completed account, got %v", err)
	}

	f.provider.Active = false
	_, err = f.svc.StartOnboarding(context.Background(), f.provider.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for inactive provider, got %v", err)
	}

	_, err = f.svc.StartOnboarding(context.Background(), uuid.New())
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown provider, got %v", err)
	}
}

func TestReconcileAppliesRemoteSnapshot(t *testing.T) {
	f := newFixture(t, &models.ConnectedAccount{
		ID:               uuid.New(),
		AccountID:        "acct_1",
		OnboardingStatus: enums.OnboardingStatusInProgress,
	})
	f.processor.remote = &stripe.Account{
		ID:               "acct_1",
		ChargesEnabled:   true,
		PayoutsEnabled:   true,
		DetailsSubmitted: true,
	}

	account, err := f.svc.Reconcile(context.Background(), f.provider.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.OnboardingStatus != enums.OnboardingStatusComplete {
		t.Fatalf("expected complete after reconcile, got %s", account.OnboardingStatus)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventAccountCapabilitiesSet {
		t.Fatalf("expected capabilities event, got %+v", f.outbox.events)
	}
}

func TestReconcileUnknownProvider(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reconcile(context.Background(), f.provider.ID)
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
