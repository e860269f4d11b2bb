package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:", zap.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store := s.Store()
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "postgres", "x", zap.NewNop()); err == nil {
		t.Fatal("Open() with unknown driver error = nil, want error")
	}
}

func TestCreditsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	b, err := store.Credits.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if b.Credits != 0 {
		t.Fatalf("new balance = %d, want 0", b.Credits)
	}

	ok, err := store.Credits.TryDecrement(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("TryDecrement() at 0 = (%v, %v), want (false, nil)", ok, err)
	}

	applied, bal, err := store.Credits.Increment(ctx, "u1", 5, "")
	if err != nil || !applied || bal != 5 {
		t.Fatalf("Increment() = (%v, %d, %v), want (true, 5, nil)", applied, bal, err)
	}

	ok, err = store.Credits.TryDecrement(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("TryDecrement() at 5 = (%v, %v), want (true, nil)", ok, err)
	}
	b, _ = store.Credits.GetOrCreate(ctx, "u1")
	if b.Credits != 4 {
		t.Errorf("balance = %d, want 4", b.Credits)
	}
}

func TestTryDecrementConcurrent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	store.Credits.Increment(ctx, "u1", 3, "")

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Credits.TryDecrement(ctx, "u1")
			if err != nil {
				t.Errorf("TryDecrement() error = %v", err)
			}
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for ok := range results {
		if ok {
			succeeded++
		}
	}
	if succeeded != 3 {
		t.Errorf("successful decrements = %d, want 3", succeeded)
	}
	b, _ := store.Credits.GetOrCreate(ctx, "u1")
	if b.Credits != 0 {
		t.Errorf("balance = %d, want 0", b.Credits)
	}
}

func TestIncrementIdempotentPerPayment(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()
	err := store.Payments.Create(ctx, &models.PaymentSession{
		ID: "pi_1", UserID: "u1", Credits: 5, AmountMinor: 25000, Currency: "eur",
		Status: models.PaymentStatusPending, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Payments.Create() error = %v", err)
	}

	applied, bal, err := store.Credits.Increment(ctx, "u1", 5, "pi_1")
	if err != nil || !applied || bal != 5 {
		t.Fatalf("first Increment() = (%v, %d, %v), want (true, 5, nil)", applied, bal, err)
	}
	applied, bal, err = store.Credits.Increment(ctx, "u1", 5, "pi_1")
	if err != nil || applied || bal != 5 {
		t.Fatalf("second Increment() = (%v, %d, %v), want (false, 5, nil)", applied, bal, err)
	}

	p, err := store.Payments.GetByID(ctx, "pi_1")
	if err != nil {
		t.Fatalf("Payments.GetByID() error = %v", err)
	}
	if !p.Credited || p.Status != models.PaymentStatusSucceeded {
		t.Errorf("payment = %+v, want credited and succeeded", p)
	}

	if _, _, err := store.Credits.Increment(ctx, "u1", 5, "pi_missing"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Increment() unknown payment error = %v, want ErrNotFound", err)
	}
}

func TestPaymentsPendingAndStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Now().UTC()
	for i, id := range []string{"pi_a", "pi_b"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := store.Payments.Create(ctx, &models.PaymentSession{
			ID: id, UserID: "u1", Credits: 1, AmountMinor: 5000, Currency: "eur",
			Status: models.PaymentStatusPending, CreatedAt: ts, UpdatedAt: ts,
		}); err != nil {
			t.Fatalf("Payments.Create(%s) error = %v", id, err)
		}
	}
	if err := store.Payments.UpdateStatus(ctx, "pi_a", models.PaymentStatusFailed, "card_declined"); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	pending, err := store.Payments.ListPendingByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListPendingByUser() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "pi_b" {
		t.Errorf("pending = %v, want [pi_b]", pending)
	}
	failed, _ := store.Payments.GetByID(ctx, "pi_a")
	if failed.FailureReason != "card_declined" {
		t.Errorf("FailureReason = %q, want card_declined", failed.FailureReason)
	}
	if err := store.Payments.UpdateStatus(ctx, "nope", models.PaymentStatusFailed, ""); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("UpdateStatus() unknown error = %v, want ErrNotFound", err)
	}
}

func TestContactsCRUDAndOwnership(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()
	lat := 48.85

	c := &models.Contact{
		CreatedBy: "u1", FirstName: "Zoe", LastName: "Martin", Phone: "0612345678",
		Email: strPtr("zoe@example.com"), Latitude: &lat, CreatedAt: now, UpdatedAt: now,
	}
	id, err := store.Contacts.Create(ctx, c)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	store.Contacts.Create(ctx, &models.Contact{CreatedBy: "u1", FirstName: "Anna", LastName: "B", Phone: "1", CreatedAt: now, UpdatedAt: now})
	store.Contacts.Create(ctx, &models.Contact{CreatedBy: "u2", FirstName: "Bob", LastName: "C", Phone: "2", CreatedAt: now, UpdatedAt: now})

	got, err := store.Contacts.GetByID(ctx, "u1", id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email == nil || *got.Email != "zoe@example.com" || got.Latitude == nil || *got.Latitude != lat || got.Address != nil {
		t.Errorf("GetByID() = %+v, optional fields not round-tripped", got)
	}

	if _, err := store.Contacts.GetByID(ctx, "u2", id); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("GetByID() other owner error = %v, want ErrNotFound", err)
	}

	list, err := store.Contacts.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(list) != 2 || list[0].FirstName != "Anna" || list[1].FirstName != "Zoe" {
		t.Errorf("ListByOwner() order = %v, want Anna then Zoe", list)
	}

	got.Note = strPtr("met at conference")
	got.Email = nil
	if err := store.Contacts.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, _ := store.Contacts.GetByID(ctx, "u1", id)
	if updated.Note == nil || *updated.Note != "met at conference" || updated.Email != nil {
		t.Errorf("Update() result = %+v", updated)
	}

	hijack := *updated
	hijack.CreatedBy = "u2"
	if err := store.Contacts.Update(ctx, &hijack); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Update() other owner error = %v, want ErrNotFound", err)
	}
	if err := store.Contacts.Delete(ctx, "u2", id); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Delete() other owner error = %v, want ErrNotFound", err)
	}
	if err := store.Contacts.Delete(ctx, "u1", id); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestCreateWithCredit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	creditor, ok := store.Contacts.(db.ContactCreditor)
	if !ok {
		t.Fatal("SQL contact repository does not implement ContactCreditor")
	}
	now := time.Now().UTC()
	newContact := func() *models.Contact {
		return &models.Contact{CreatedBy: "u1", FirstName: "A", LastName: "B", Phone: "1", CreatedAt: now, UpdatedAt: now}
	}

	if _, _, err := creditor.CreateWithCredit(ctx, newContact()); !errors.Is(err, db.ErrInsufficientCredits) {
		t.Fatalf("CreateWithCredit() at 0 error = %v, want ErrInsufficientCredits", err)
	}
	if list, _ := store.Contacts.ListByOwner(ctx, "u1"); len(list) != 0 {
		t.Fatalf("contacts after rejected create = %d, want 0", len(list))
	}

	store.Credits.Increment(ctx, "u1", 2, "")
	id, bal, err := creditor.CreateWithCredit(ctx, newContact())
	if err != nil || id == "" || bal != 1 {
		t.Fatalf("CreateWithCredit() = (%q, %d, %v), want (id, 1, nil)", id, bal, err)
	}
}

func TestUsersAndAudit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	if _, err := store.Users.GetByID(ctx, "u1"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("GetByID() missing error = %v, want ErrNotFound", err)
	}
	if err := store.Users.Create(ctx, &models.User{ID: "u1", Email: "a@b.co", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	u, err := store.Users.GetByID(ctx, "u1")
	if err != nil || u.Email != "a@b.co" {
		t.Fatalf("GetByID() = (%+v, %v)", u, err)
	}

	err = store.Audit.Create(ctx, models.AuditLog{
		UserID: "u1", Action: models.AuditContactCreate, TargetType: "CONTACT", TargetID: "c1",
		Details: map[string]interface{}{"balance": 3},
	})
	if err != nil {
		t.Errorf("Audit.Create() error = %v", err)
	}
}
