// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/foxmentors/portal/internal/config"
	"github.com/foxmentors/portal/internal/core"
	"github.com/foxmentors/portal/internal/middleware"
)

type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]RefreshToken
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[string]RefreshToken)}
}

func (m *memoryTokens) Create(ctx context.Context, token *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token.CreatedAt = time.Now()
	m.tokens[token.ID] = *token
	return nil
}

func (m *memoryTokens) FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryTokens) FindByID(ctx context.Context, id string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &t, nil
}

func (m *memoryTokens) MarkAsUsed(ctx context.Context, id, replacedByID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	if !ok || t.IsUsed {
		return core.ErrNotFound
	}
	now := time.Now()
	t.IsUsed = true
	t.UsedAt = &now
	t.ReplacedByID = &replacedByID
	m.tokens[id] = t
	return nil
}

func (m *memoryTokens) revokeWhere(keep func(RefreshToken) bool) int {
	now := time.Now()
	n := 0
	for id, t := range m.tokens {
		if keep(t) && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.tokens[id] = t
			n++
		}
	}
	return n
}

func (m *memoryTokens) RevokeByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.revokeWhere(func(t RefreshToken) bool { return t.ID == id }) == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *memoryTokens) RevokeByFamilyID(ctx context.Context, familyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revokeWhere(func(t RefreshToken) bool { return t.FamilyID == familyID })
	return nil
}

func (m *memoryTokens) RevokeAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revokeWhere(func(t RefreshToken) bool { return t.UserID == userID })
	return nil
}

func (m *memoryTokens) GetActiveSessionsForUser(ctx context.Context, userID string) ([]RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []RefreshToken
	for _, t := range m.tokens {
		if t.UserID == userID && t.IsValid() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*UserInfo
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*UserInfo)}
}

func (m *memoryUsers) GetByEmail(ctx context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (m *memoryUsers) GetByID(ctx context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) CreateStudent(ctx context.Context, email, passwordHash, name string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}

	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         core.RoleStudent,
		CreatedAt:    time.Now(),
	}
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) IncrementTokenVersion(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[userID].TokenVersion++
	return nil
}

func (m *memoryUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[userID].PasswordHash = passwordHash
	return nil
}

func (m *memoryUsers) setRole(userID string, role core.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[userID].Role = role
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	if err := GenerateKeyPair(priv, pub); err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	m, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     priv,
		PublicKeyPath:      pub,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: time.Hour,
		Issuer:             "portal-test",
		Audience:           "portal-test-api",
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	return m
}

type testEnv struct {
	svc    *Service
	tokens *memoryTokens
	users  *memoryUsers
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens := newMemoryTokens()
	users := newMemoryUsers()

	return &testEnv{
		svc:    NewService(tokens, newTestJWT(t), users, NewRedisRevocations(rdb)),
		tokens: tokens,
		users:  users,
		redis:  mr,
	}
}

func (e *testEnv) register(t *testing.T, email, password string) *AuthResponse {
	t.Helper()

	resp, err := e.svc.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Sam",
	}, "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp
}

func (e *testEnv) session(t *testing.T, accessToken string) *middleware.Session {
	t.Helper()

	s, err := e.svc.VerifyAccessToken(context.Background(), accessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	return s
}

func TestRegisterCreatesStudent(t *testing.T) {
	env := newTestEnv(t)

	resp := env.register(t, "sam@x.com", "password-1")
	if resp.User.Role != "student" {
		t.Fatalf("expected student, got %q", resp.User.Role)
	}

	stored, err := env.users.GetByEmail(context.Background(), "sam@x.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if stored.PasswordHash == "password-1" {
		t.Fatal("password stored in plaintext")
	}

	s := env.session(t, resp.Tokens.AccessToken)
	if s.UserID != stored.ID || s.Role != core.RoleStudent {
		t.Fatalf("unexpected session %+v", s)
	}
}

func TestRegisterDuplicateKeepsOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "sam@x.com", "password-1")
	before, _ := env.users.GetByEmail(ctx, "sam@x.com")

	_, err := env.svc.Register(ctx, RegisterRequest{
		Email:    "sam@x.com",
		Password: "password-2",
		Name:     "Impostor",
	}, "", "")
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	after, _ := env.users.GetByEmail(ctx, "sam@x.com")
	if after.PasswordHash != before.PasswordHash || after.Name != before.Name {
		t.Fatal("duplicate registration modified the existing account")
	}

	if _, err := env.svc.Login(ctx, LoginRequest{Email: "sam@x.com", Password: "password-1"}, "", ""); err != nil {
		t.Fatalf("original password should still work: %v", err)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "sam@x.com", "password-1")

	_, wrongPassword := env.svc.Login(ctx, LoginRequest{Email: "sam@x.com", Password: "nope"}, "", "")
	_, unknownEmail := env.svc.Login(ctx, LoginRequest{Email: "ghost@x.com", Password: "nope"}, "", "")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPassword, unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Fatalf("errors differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

func TestVerifyAccessTokenUsesCurrentRole(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "sam@x.com", "password-1")

	env.users.setRole(resp.User.ID, core.RoleMentor)
	if s := env.session(t, resp.Tokens.AccessToken); s.Role != core.RoleMentor {
		t.Fatalf("expected promoted role, got %q", s.Role)
	}

	env.users.setRole(resp.User.ID, core.RoleUnknown)
	if s := env.session(t, resp.Tokens.AccessToken); s.Role != core.RoleUnknown {
		t.Fatalf("expected unknown role, got %q", s.Role)
	}
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.VerifyAccessToken(context.Background(), "not.a.jwt")
	if !errors.Is(err, core.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	other := newTestJWT(t)
	forged, err := other.CreateAccessToken(AccessTokenClaims{UserID: "x", Role: core.RoleAdmin})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.svc.VerifyAccessToken(context.Background(), forged.Token); !errors.Is(err, core.ErrTokenInvalid) {
		t.Fatalf("expected token from another key to be rejected, got %v", err)
	}
}

func TestRefreshRotationAndReuse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.register(t, "sam@x.com", "password-1")

	second, err := env.svc.Refresh(ctx, first.Tokens.RefreshToken, "", "")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.Tokens.RefreshToken == first.Tokens.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	if _, err := env.svc.Refresh(ctx, first.Tokens.RefreshToken, "", ""); !errors.Is(err, ErrTokenReuse) {
		t.Fatalf("expected ErrTokenReuse, got %v", err)
	}

	if _, err := env.svc.Refresh(ctx, second.Tokens.RefreshToken, "", ""); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected family to be revoked, got %v", err)
	}

	if _, err := env.svc.Refresh(ctx, "unknown", "", ""); !errors.Is(err, core.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestLogoutBlacklistsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "sam@x.com", "password-1")
	s := env.session(t, resp.Tokens.AccessToken)

	if err := env.svc.Logout(ctx, *s, resp.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := env.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := env.svc.Refresh(ctx, resp.Tokens.RefreshToken, "", ""); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected refresh token to be revoked, got %v", err)
	}

	if !env.redis.Exists("blacklist:" + s.TokenID) {
		t.Fatal("expected blacklist entry")
	}
	if ttl := env.redis.TTL("blacklist:" + s.TokenID); ttl <= 0 || ttl > 15*time.Minute {
		t.Fatalf("expected ttl bounded by token lifetime, got %s", ttl)
	}
}

func TestLogoutForeignRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sam := env.register(t, "sam@x.com", "password-1")
	tara := env.register(t, "tara@x.com", "password-1")

	s := env.session(t, sam.Tokens.AccessToken)
	if err := env.svc.Logout(ctx, *s, tara.Tokens.RefreshToken); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := env.svc.Refresh(ctx, tara.Tokens.RefreshToken, "", ""); err != nil {
		t.Fatalf("other user's token must survive: %v", err)
	}
}

func TestChangePasswordEndsAllSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	resp := env.register(t, "sam@x.com", "password-1")

	if err := env.svc.ChangePassword(ctx, resp.User.ID, "wrong", "password-2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := env.svc.ChangePassword(ctx, resp.User.ID, "password-1", "password-2"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := env.svc.VerifyAccessToken(ctx, resp.Tokens.AccessToken); !errors.Is(err, core.ErrTokenRevoked) {
		t.Fatalf("expected stale token version to be rejected, got %v", err)
	}

	sessions, err := env.svc.GetActiveSessions(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(sessions))
	}

	if _, err := env.svc.Login(ctx, LoginRequest{Email: "sam@x.com", Password: "password-2"}, "", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestRevokeSessionOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sam := env.register(t, "sam@x.com", "password-1")
	tara := env.register(t, "tara@x.com", "password-1")

	taraSessions, err := env.svc.GetActiveSessions(ctx, tara.User.ID)
	if err != nil || len(taraSessions) != 1 {
		t.Fatalf("expected one session, got %d (%v)", len(taraSessions), err)
	}

	if err := env.svc.RevokeSession(ctx, sam.User.ID, taraSessions[0].ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := env.svc.RevokeSession(ctx, tara.User.ID, taraSessions[0].ID); err != nil {
		t.Fatalf("revoke own session: %v", err)
	}
}

func TestRevocationExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rev := NewRedisRevocations(rdb)
	ctx := context.Background()

	if err := rev.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := rev.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}

	if revoked, _ := rev.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatal("expected jti-1 to be revoked")
	}
	if mr.Exists("blacklist:jti-old") {
		t.Fatal("already expired token should not be stored")
	}

	mr.FastForward(2 * time.Minute)
	if revoked, _ := rev.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("expected blacklist entry to expire with the token")
	}
}

func TestPurgeExpiredTokensKeepsGraceWindow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "sam@x.com", "password-1")

	now := time.Now()
	for id, expires := range map[string]time.Time{
		"stale":  now.Add(-48 * time.Hour),
		"recent": now.Add(-time.Hour),
	} {
		if err := env.tokens.Create(context.Background(), &RefreshToken{
			ID:        id,
			UserID:    "u-old",
			FamilyID:  id,
			TokenHash: "hash-" + id,
			ExpiresAt: expires,
		}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	n, err := env.svc.PurgeExpiredTokens(context.Background())
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged token, got %d", n)
	}
	if _, err := env.tokens.FindByID(context.Background(), "stale"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected stale token gone, got %v", err)
	}
	if _, err := env.tokens.FindByID(context.Background(), "recent"); err != nil {
		t.Fatalf("expected token inside grace window kept, got %v", err)
	}
	if len(env.tokens.tokens) != 2 {
		t.Fatalf("expected live session and recent token kept, got %d", len(env.tokens.tokens))
	}
}

func TestTokenSweeperStopsWithContext(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.svc.RunTokenSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
