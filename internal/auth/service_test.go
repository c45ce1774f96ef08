package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarceau/shopstream-backend/internal/users"
	pkgAuth "github.com/dmarceau/shopstream-backend/pkg/auth"
	"github.com/dmarceau/shopstream-backend/pkg/auth/session"
	"github.com/dmarceau/shopstream-backend/pkg/config"
	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/security"
)

type stubUserRepo struct {
	byEmail map[string]*models.User
	created []users.CreateUserDTO
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*models.User)}
}

func (r *stubUserRepo) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	r.created = append(r.created, dto)
	user := dto.ToModel()
	user.ID = uuid.New()
	r.byEmail[user.Email] = user
	return user, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if user, ok := r.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubSessionManager struct {
	sessions  map[string]string
	rotateErr error
	revoked   []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: make(map[string]string)}
}

func (m *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	m.sessions[accessID] = token
	return token, nil
}

func (m *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if m.rotateErr != nil {
		return "", "", m.rotateErr
	}
	stored, ok := m.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.sessions, oldAccessID)
	newID := session.NewAccessID()
	token := "refresh-" + newID
	m.sessions[newID] = token
	return newID, token, nil
}

func (m *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	m.revoked = append(m.revoked, accessID)
	delete(m.sessions, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret",
		Issuer:                 "shopstream",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

func newTestService(t *testing.T) (Service, *stubUserRepo, *stubSessionManager) {
	t.Helper()

	repo := newStubUserRepo()
	sessions := newStubSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, repo, sessions
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password, role string) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Seeded",
		Role:         role,
	}
	repo.byEmail[email] = user
	return user
}

func TestSignupCreatesCustomerAndIssuesTokens(t *testing.T) {
	svc, repo, sessions := newTestService(t)

	pair, err := svc.Signup(context.Background(), SignupRequest{
		Name:     "New Shopper",
		Email:    "  Shopper@Example.COM ",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if pair.User == nil || pair.User.Role != models.RoleCustomer {
		t.Fatalf("expected customer user in response, got %+v", pair.User)
	}
	if len(repo.created) != 1 || repo.created[0].Email != "shopper@example.com" {
		t.Fatalf("expected normalized email persisted, got %+v", repo.created)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected one stored session, got %d", len(sessions.sessions))
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != pair.User.ID {
		t.Fatalf("token user %s does not match response user %s", claims.UserID, pair.User.ID)
	}
	if claims.Role != models.RoleCustomer {
		t.Fatalf("unexpected token role %q", claims.Role)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "taken@example.com", "pw-irrelevant", models.RoleCustomer)

	_, err := svc.Signup(context.Background(), SignupRequest{
		Name:     "Another",
		Email:    "taken@example.com",
		Password: "correct-horse",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginSucceedsWithValidCredentials(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, repo, "admin@example.com", "super-secret", models.RoleAdmin)

	pair, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Admin@Example.com",
		Password: "super-secret",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.User.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, pair.User.ID)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != models.RoleAdmin {
		t.Fatalf("unexpected role %q", claims.Role)
	}
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedUser(t, repo, "known@example.com", "right-password", models.RoleCustomer)

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "known@example.com", Password: "wrong"}},
		{"unknown email", LoginRequest{Email: "ghost@example.com", Password: "whatever"}},
		{"blank email", LoginRequest{Email: "   ", Password: "whatever"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized, got %v", err)
			}
			if typed.Message() != invalidCredentialsMessage {
				t.Fatalf("expected uniform message, got %q", typed.Message())
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, repo, sessions := newTestService(t)
	seedUser(t, repo, "shopper@example.com", "correct-horse", models.RoleCustomer)

	pair, err := svc.Login(context.Background(), LoginRequest{
		Email:    "shopper@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.AccessToken == pair.AccessToken {
		t.Fatal("expected a new access token")
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatal("expected a new refresh token")
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected the old session replaced, have %d", len(sessions.sessions))
	}

	// The consumed pair must not rotate twice.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized on reuse, got %v", err)
	}
}

func TestRefreshRejectsForgedTokens(t *testing.T) {
	svc, _, sessions := newTestService(t)
	sessions.rotateErr = session.ErrInvalidRefreshToken

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "whatever",
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for malformed access token, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, repo, sessions := newTestService(t)
	seedUser(t, repo, "shopper@example.com", "correct-horse", models.RoleCustomer)

	pair, err := svc.Login(context.Background(), LoginRequest{
		Email:    "shopper@example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("expected one revoked session, got %d", len(sessions.revoked))
	}
	if len(sessions.sessions) != 0 {
		t.Fatal("expected session store emptied")
	}
}

func TestProfile(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, repo, "shopper@example.com", "correct-horse", models.RoleCustomer)

	dto, err := svc.Profile(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if dto.Email != "shopper@example.com" {
		t.Fatalf("unexpected email %q", dto.Email)
	}

	if _, err := svc.Profile(context.Background(), uuid.Nil); pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for nil principal, got %v", err)
	}
	if _, err := svc.Profile(context.Background(), uuid.New()); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
