package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/contacts-backend/internal/models"
)

func TestMemoryCreditsLazyZeroRow(t *testing.T) {
	store := NewMemoryStore()
	b, err := store.Credits.GetOrCreate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if b.Credits != 0 || b.UserID != "u1" {
		t.Errorf("GetOrCreate() = %+v, want zero balance for u1", b)
	}
}

func TestMemoryTryDecrement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Credits.TryDecrement(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("TryDecrement() at zero = (%v, %v), want (false, nil)", ok, err)
	}
	if _, _, err := store.Credits.Increment(ctx, "u1", 2, ""); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	ok, err = store.Credits.TryDecrement(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("TryDecrement() at 2 = (%v, %v), want (true, nil)", ok, err)
	}
	b, _ := store.Credits.GetOrCreate(ctx, "u1")
	if b.Credits != 1 {
		t.Errorf("balance = %d, want 1", b.Credits)
	}
}

func TestMemoryTryDecrementConcurrentNeverNegative(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if _, _, err := store.Credits.Increment(ctx, "u1", 5, ""); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := store.Credits.TryDecrement(ctx, "u1")
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("successful decrements = %d, want 5", succeeded)
	}
	b, _ := store.Credits.GetOrCreate(ctx, "u1")
	if b.Credits != 0 {
		t.Errorf("balance = %d, want 0", b.Credits)
	}
}

func TestMemoryIncrementIdempotentPerPayment(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := &models.PaymentSession{ID: "pi_1", UserID: "u1", Credits: 5, Status: models.PaymentStatusPending, CreatedAt: time.Now()}
	if err := store.Payments.Create(ctx, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	applied, bal, err := store.Credits.Increment(ctx, "u1", 5, "pi_1")
	if err != nil || !applied || bal != 5 {
		t.Fatalf("first Increment() = (%v, %d, %v), want (true, 5, nil)", applied, bal, err)
	}
	applied, bal, err = store.Credits.Increment(ctx, "u1", 5, "pi_1")
	if err != nil || applied || bal != 5 {
		t.Fatalf("second Increment() = (%v, %d, %v), want (false, 5, nil)", applied, bal, err)
	}

	got, _ := store.Payments.GetByID(ctx, "pi_1")
	if !got.Credited || got.Status != models.PaymentStatusSucceeded {
		t.Errorf("payment = %+v, want credited and succeeded", got)
	}

	if _, _, err := store.Credits.Increment(ctx, "u2", 5, "pi_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Increment() for another user error = %v, want ErrNotFound", err)
	}
}

func TestMemoryContactsOwnership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Contacts.Create(ctx, &models.Contact{CreatedBy: "u1", FirstName: "Zoe"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Contacts.Create(ctx, &models.Contact{CreatedBy: "u1", FirstName: "Anna"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.Contacts.Create(ctx, &models.Contact{CreatedBy: "u2", FirstName: "Bob"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := store.Contacts.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(list) != 2 || list[0].FirstName != "Anna" || list[1].FirstName != "Zoe" {
		t.Errorf("ListByOwner() = %v, want [Anna Zoe]", list)
	}

	if _, err := store.Contacts.GetByID(ctx, "u2", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() by other user error = %v, want ErrNotFound", err)
	}
	if err := store.Contacts.Update(ctx, &models.Contact{ID: id, CreatedBy: "u2", FirstName: "X"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() by other user error = %v, want ErrNotFound", err)
	}
	if err := store.Contacts.Delete(ctx, "u2", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() by other user error = %v, want ErrNotFound", err)
	}
	if err := store.Contacts.Delete(ctx, "u1", id); err != nil {
		t.Errorf("Delete() by owner error = %v", err)
	}
}

func TestMemoryCreateWithCredit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	creditor := store.Contacts.(ContactCreditor)

	_, _, err := creditor.CreateWithCredit(ctx, &models.Contact{CreatedBy: "u1", FirstName: "A"})
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("CreateWithCredit() at zero error = %v, want ErrInsufficientCredits", err)
	}
	list, _ := store.Contacts.ListByOwner(ctx, "u1")
	if len(list) != 0 {
		t.Fatalf("contacts after failed create = %d, want 0", len(list))
	}

	store.Credits.Increment(ctx, "u1", 1, "")
	id, bal, err := creditor.CreateWithCredit(ctx, &models.Contact{CreatedBy: "u1", FirstName: "A"})
	if err != nil || id == "" || bal != 0 {
		t.Fatalf("CreateWithCredit() = (%q, %d, %v), want new id, 0, nil", id, bal, err)
	}
}
