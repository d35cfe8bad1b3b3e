package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keenon/cardapi/internal/auth"
	"github.com/keenon/cardapi/internal/token"
)

// fakeUserStore keeps users in memory and mimics the unique email index.
type fakeUserStore struct {
	users  []*auth.User
	nextID int
	err    error
}

func (f *fakeUserStore) Create(_ context.Context, user *auth.User) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, fmt.Errorf("insert user: %w", auth.ErrDuplicateKey)
		}
	}
	f.nextID++
	clone := *user
	clone.ID = fmt.Sprintf("u-%d", f.nextID)
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	f.users = append(f.users, &clone)
	out := clone
	return &out, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.ID == id {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByVerificationCode(_ context.Context, hashedCode string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.VerificationCode != nil && *u.VerificationCode == hashedCode {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) Save(_ context.Context, user *auth.User) error {
	if f.err != nil {
		return f.err
	}
	for i, u := range f.users {
		if u.ID == user.ID {
			clone := *user
			f.users[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("user %s not found", user.ID)
}

func (f *fakeUserStore) List(_ context.Context, limit, offset int) ([]auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []auth.User
	for i := offset; i < len(f.users) && len(out) < limit; i++ {
		out = append(out, *f.users[i])
	}
	return out, nil
}

func (f *fakeUserStore) mustGet(t *testing.T, id string) *auth.User {
	t.Helper()
	for _, u := range f.users {
		if u.ID == id {
			return u
		}
	}
	t.Fatalf("user %s not in store", id)
	return nil
}

type fakeSessionStore struct {
	sessions map[string]auth.SessionSnapshot
	err      error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]auth.SessionSnapshot)}
}

func (f *fakeSessionStore) Create(_ context.Context, snapshot auth.SessionSnapshot, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.sessions[snapshot.ID] = snapshot
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, userID string) (*auth.SessionSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	snapshot, ok := f.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.sessions, userID)
	return nil
}

type fakeMailer struct {
	fail     bool
	sentTo   string
	sentURLs []string
}

func (f *fakeMailer) SendVerificationCode(_ context.Context, _, to, verifyURL string) bool {
	if f.fail {
		return false
	}
	f.sentTo = to
	f.sentURLs = append(f.sentURLs, verifyURL)
	return true
}

// stubTOTP accepts one hard-coded code so tests stay clock-independent.
type stubTOTP struct{}

func (stubTOTP) Verify(secret, code string) bool {
	return secret != "" && code == "654321"
}

func (stubTOTP) Generate(email string) (string, string, error) {
	return "STUBSECRET", "data:image/png;base64,stub", nil
}

func testKeyPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM
}

func testCodec(t *testing.T) *token.Codec {
	t.Helper()
	accessPriv, accessPub := testKeyPair(t)
	refreshPriv, refreshPub := testKeyPair(t)
	codec, err := token.NewCodec(accessPriv, accessPub, refreshPriv, refreshPub)
	require.NoError(t, err)
	return codec
}

type authFixture struct {
	svc      *AuthService
	users    *fakeUserStore
	sessions *fakeSessionStore
	mailer   *fakeMailer
	codec    *token.Codec
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := &fakeUserStore{}
	sessions := newFakeSessionStore()
	mailer := &fakeMailer{}
	codec := testCodec(t)

	twoFactor := &TwoFactorService{Users: users, TOTP: stubTOTP{}}
	svc := &AuthService{
		Users:      users,
		Sessions:   sessions,
		Tokens:     codec,
		Hasher:     &auth.BcryptHasher{Cost: 4},
		TwoFactor:  twoFactor,
		Mailer:     mailer,
		Origin:     "http://localhost:3000",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
		SessionTTL: time.Hour,
	}
	return &authFixture{svc: svc, users: users, sessions: sessions, mailer: mailer, codec: codec}
}

// seedUser registers and verifies a user directly through the store.
func (f *authFixture) seedUser(t *testing.T, email, password string, opts ...func(*auth.User)) *auth.User {
	t.Helper()
	hashed, err := f.svc.Hasher.Hash(password)
	require.NoError(t, err)

	user := &auth.User{
		Name:     "Test User",
		Email:    email,
		Password: hashed,
		Role:     auth.RoleUser,
		Verified: true,
	}
	for _, opt := range opts {
		opt(user)
	}
	created, err := f.users.Create(context.Background(), user)
	require.NoError(t, err)
	return created
}
