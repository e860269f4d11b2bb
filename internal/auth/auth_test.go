package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

func TestLocalProviderLifecycle(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider("0123456789abcdef0123456789abcdef", time.Hour)

	session, err := p.SignUp(ctx, "Ada@Example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if session.Email != "ada@example.com" || session.IDToken == "" {
		t.Errorf("SignUp() = %+v", session)
	}
	if _, err := p.SignUp(ctx, "ada@example.com", "another1"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate SignUp() error = %v, want ErrEmailTaken", err)
	}

	id, err := p.Verify(ctx, session.IDToken)
	if err != nil || id.UserID != session.UserID || id.Email != "ada@example.com" {
		t.Fatalf("Verify() = %+v, %v", id, err)
	}

	if _, err := p.SignIn(ctx, "ada@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn(wrong) error = %v", err)
	}
	if _, err := p.SignIn(ctx, "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn(unknown) error = %v", err)
	}

	if err := p.SignOut(ctx, session.UserID); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if _, err := p.Verify(ctx, session.IDToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() after SignOut error = %v, want ErrInvalidToken", err)
	}

	again, err := p.SignIn(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if _, err := p.Verify(ctx, again.IDToken); err != nil {
		t.Errorf("Verify() of fresh token error = %v", err)
	}
}

func TestLocalProviderRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider("0123456789abcdef0123456789abcdef", time.Minute)
	session, err := p.SignUp(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	other := NewLocalProvider("ffffffffffffffffffffffffffffffff", time.Minute)
	if _, err := other.Verify(ctx, session.IDToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() with other secret error = %v", err)
	}

	p.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := p.Verify(ctx, session.IDToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify() of expired token error = %v", err)
	}
	if _, err := p.Verify(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(garbage) error = %v", err)
	}
	if _, err := p.SignUp(ctx, "short@example.com", "12345"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("SignUp(short password) error = %v", err)
	}
}

type fakeAdmin struct {
	revoked []string
	created []string
	tokens  map[string]*firebaseauth.Token
}

func (f *fakeAdmin) VerifyIDTokenAndCheckRevoked(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	if t, ok := f.tokens[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("ID token has been revoked")
}

func (f *fakeAdmin) CreateUser(_ context.Context, _ *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error) {
	f.created = append(f.created, "user")
	return &firebaseauth.UserRecord{}, nil
}

func (f *fakeAdmin) RevokeRefreshTokens(_ context.Context, uid string) error {
	f.revoked = append(f.revoked, uid)
	return nil
}

func newFirebaseTestProvider(t *testing.T, admin *fakeAdmin, expiresIn string) *FirebaseProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if key == "" {
			key = r.Header.Get("X-Goog-Api-Key")
		}
		if !strings.HasSuffix(r.URL.Path, "/verifyPassword") || key != "web-key" {
			http.NotFound(w, r)
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_LOGIN_CREDENTIALS"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"localId":"uid-1","email":"ada@example.com","idToken":"id-token","refreshToken":"refresh","expiresIn":"` + expiresIn + `"}`))
	}))
	t.Cleanup(srv.Close)

	p, err := newFirebaseProvider(context.Background(), admin, "web-key", time.Second, option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("newFirebaseProvider() error = %v", err)
	}
	return p
}

func TestFirebaseProvider(t *testing.T) {
	ctx := context.Background()
	admin := &fakeAdmin{tokens: map[string]*firebaseauth.Token{
		"id-token": {UID: "uid-1", Claims: map[string]interface{}{"email": "ada@example.com"}},
	}}
	p := newFirebaseTestProvider(t, admin, "3600")

	session, err := p.SignUp(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if session.UserID != "uid-1" || session.IDToken != "id-token" || len(admin.created) != 1 {
		t.Errorf("SignUp() = %+v", session)
	}
	if time.Until(session.ExpiresAt) < 59*time.Minute {
		t.Errorf("ExpiresAt = %v, want about an hour from now", session.ExpiresAt)
	}

	if _, err := p.SignIn(ctx, "ada@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("SignIn(wrong) error = %v", err)
	}

	id, err := p.Verify(ctx, "id-token")
	if err != nil || id.UserID != "uid-1" || id.Email != "ada@example.com" {
		t.Errorf("Verify() = %+v, %v", id, err)
	}
	if _, err := p.Verify(ctx, "revoked"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(revoked) error = %v", err)
	}

	if err := p.SignOut(ctx, "uid-1"); err != nil || len(admin.revoked) != 1 {
		t.Errorf("SignOut() error = %v revoked = %v", err, admin.revoked)
	}
}

func TestFirebaseSignInRejectsBadTokenLifetime(t *testing.T) {
	for _, expiresIn := range []string{"abc", "0"} {
		p := newFirebaseTestProvider(t, &fakeAdmin{}, expiresIn)
		session, err := p.SignIn(context.Background(), "ada@example.com", "secret1")
		if err == nil || errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expiresIn %q: SignIn() = %+v, %v, want a sign-in error", expiresIn, session, err)
		}
	}
}
