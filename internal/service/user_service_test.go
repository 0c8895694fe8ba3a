package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/repository"
	"github.com/spec-kit/user-service/internal/validation"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// --- fakes ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	creates int
	writes  int

	getErr    error
	createErr error
	listErr   error
	markErr   error
	updateErr error
	deleteErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*domain.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	cp := *u
	f.byID[u.ID] = &cp
	f.creates++
	return nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsersRepo) List(context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsersRepo) MarkLoggedIn(_ context.Context, id, lastVisit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastVisit = lastVisit
	u.IsOnline = true
	f.writes++
	return nil
}

func (f *fakeUsersRepo) Update(_ context.Context, id string, p domain.UserPatch) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Email != nil {
		for otherID, other := range f.byID {
			if otherID != id && other.Email == *p.Email {
				return nil, repository.ErrDuplicateEmail
			}
		}
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsBlocked != nil {
		u.IsBlocked = *p.IsBlocked
	}
	if p.IsOnline != nil {
		u.IsOnline = *p.IsOnline
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.byID, id)
	return u, nil
}

func (f *fakeUsersRepo) only(t *testing.T) *domain.User {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.byID, 1)
	for _, u := range f.byID {
		cp := *u
		return &cp
	}
	return nil
}

type fakePresence struct {
	online map[string]time.Duration
	err    error
}

func (p *fakePresence) MarkOnline(_ context.Context, userID string, ttl time.Duration) error {
	if p.err != nil {
		return p.err
	}
	if p.online == nil {
		p.online = map[string]time.Duration{}
	}
	p.online[userID] = ttl
	return nil
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- helpers ---

const testSecret = "test-secret"

type fixture struct {
	svc      *UserService
	repo     *fakeUsersRepo
	presence *fakePresence
	tokens   *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newFakeUsersRepo()
	presence := &fakePresence{}
	tokens := auth.NewTokenManager(testSecret, auth.DefaultTokenTTL)
	svc := NewUserService(Dependencies{
		Users:     repo,
		Presence:  presence,
		Hasher:    auth.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:    tokens,
		Validator: validation.New(),
	})
	svc.now = func() time.Time { return time.Date(2026, time.October, 14, 9, 5, 0, 0, time.UTC) }
	return &fixture{svc: svc, repo: repo, presence: presence, tokens: tokens}
}

func (fx *fixture) register(t *testing.T, email, password string) *domain.User {
	t.Helper()
	require.NoError(t, fx.svc.Register(context.Background(), RegisterInput{Email: email, Password: password, Name: "Ann"}))
	u, err := fx.repo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func requireKind(t *testing.T, err error, kind string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, kind), "want kind %s, got %v", kind, err)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// --- Register ---

func TestRegister_StoresHashedPasswordAndDate(t *testing.T) {
	fx := newFixture(t)

	u := fx.register(t, "a@b.com", "secret")

	assert.NotEqual(t, "secret", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret")))
	assert.Equal(t, "14.10.2026", u.SignUpDate)
	assert.Equal(t, "Ann", u.Name)
	assert.False(t, u.IsOnline)
	assert.False(t, u.IsBlocked)
}

func TestRegister_Duplicate_NoWrite(t *testing.T) {
	fx := newFixture(t)
	fx.register(t, "a@b.com", "secret")

	err := fx.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "other"})

	requireKind(t, err, apperrors.KindDuplicateUser)
	assert.Equal(t, 1, fx.repo.creates)
}

func TestRegister_RaceCaughtByUniqueIndex(t *testing.T) {
	fx := newFixture(t)
	fx.repo.createErr = repository.ErrDuplicateEmail

	err := fx.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "secret"})

	requireKind(t, err, apperrors.KindDuplicateUser)
}

func TestRegister_ValidationError(t *testing.T) {
	fx := newFixture(t)

	err := fx.svc.Register(context.Background(), RegisterInput{Email: "not-an-email"})

	requireKind(t, err, apperrors.KindValidation)
	de := apperrors.ToDomainError(err)
	assert.Len(t, de.Details, 2)
	assert.Equal(t, 0, fx.repo.creates)
}

func TestRegister_StoreFailureIsMasked(t *testing.T) {
	fx := newFixture(t)
	fx.repo.createErr = errBoom{}

	err := fx.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "secret"})

	requireKind(t, err, apperrors.KindRegistration)
	assert.Equal(t, "Registration error", apperrors.ToDomainError(err).Message)
}

func TestRegister_MultibytePasswordOverLimit(t *testing.T) {
	fx := newFixture(t)

	err := fx.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: strings.Repeat("€", 30)})

	requireKind(t, err, apperrors.KindValidation)
	assert.Equal(t, []string{"password must be at most 72 bytes"}, apperrors.ToDomainError(err).Details)
	assert.Equal(t, 0, fx.repo.creates)
}

func TestRegister_LookupFailureIsMasked(t *testing.T) {
	fx := newFixture(t)
	fx.repo.getErr = errBoom{}

	err := fx.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "secret"})

	requireKind(t, err, apperrors.KindRegistration)
	assert.Equal(t, 0, fx.repo.creates)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	fx := newFixture(t)
	registered := fx.register(t, "a@b.com", "secret")

	res, err := fx.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)

	assert.Equal(t, registered.ID, res.UserID)
	assert.Equal(t, "Ann", res.Name)
	claims, err := fx.tokens.ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)

	stored := fx.repo.only(t)
	assert.True(t, stored.IsOnline)
	assert.Equal(t, "14th of October, 09:05", stored.LastVisit)
	assert.Equal(t, auth.DefaultTokenTTL, fx.presence.online[registered.ID])
}

func TestLogin_UnknownEmail(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Login(context.Background(), LoginInput{Email: "x@y.com", Password: "secret"})

	requireKind(t, err, apperrors.KindNotFound)
	assert.Contains(t, err.Error(), "x@y.com")
}

func TestLogin_Blocked_NoMutation(t *testing.T) {
	fx := newFixture(t)
	u := fx.register(t, "a@b.com", "secret")
	_, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: u.ID, IsBlocked: boolPtr(true)})
	require.NoError(t, err)

	for _, pw := range []string{"secret", "wrong"} {
		_, err := fx.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: pw})
		requireKind(t, err, apperrors.KindBlockedUser)
	}

	stored := fx.repo.only(t)
	assert.False(t, stored.IsOnline)
	assert.Empty(t, stored.LastVisit)
	assert.Equal(t, 0, fx.repo.writes)
}

func TestLogin_WrongPassword_NoMutation(t *testing.T) {
	fx := newFixture(t)
	fx.register(t, "a@b.com", "secret")

	_, err := fx.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "wrong"})

	requireKind(t, err, apperrors.KindInvalidCredentials)
	stored := fx.repo.only(t)
	assert.False(t, stored.IsOnline)
	assert.Empty(t, stored.LastVisit)
	assert.Empty(t, fx.presence.online)
}

func TestLogin_UnexpectedFailuresAreMasked(t *testing.T) {
	cases := map[string]func(fx *fixture){
		"lookup": func(fx *fixture) { fx.repo.getErr = errBoom{} },
		"mark":   func(fx *fixture) { fx.repo.markErr = errBoom{} },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t)
			fx.register(t, "a@b.com", "secret")
			breakIt(fx)

			_, err := fx.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "secret"})

			requireKind(t, err, apperrors.KindLogin)
			assert.Equal(t, "Login error", apperrors.ToDomainError(err).Message)
		})
	}
}

func TestLogin_PresenceFailureDoesNotFailLogin(t *testing.T) {
	fx := newFixture(t)
	fx.register(t, "a@b.com", "secret")
	fx.presence.err = errors.New("redis down")

	res, err := fx.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "secret"})

	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

// --- ListUsers ---

func TestListUsers(t *testing.T) {
	fx := newFixture(t)
	fx.register(t, "a@b.com", "secret")
	fx.register(t, "c@d.com", "secret")

	users, err := fx.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestListUsers_Failure(t *testing.T) {
	fx := newFixture(t)
	fx.repo.listErr = errBoom{}

	_, err := fx.svc.ListUsers(context.Background())

	requireKind(t, err, apperrors.KindPersistence)
	assert.NotContains(t, apperrors.ToDomainError(err).Message, "boom")
}

// --- UpdateUser ---

func TestUpdateUser_MissingID(t *testing.T) {
	fx := newFixture(t)
	fx.repo.updateErr = errors.New("must not be reached")

	_, err := fx.svc.UpdateUser(context.Background(), UpdateInput{Name: strPtr("x")})

	requireKind(t, err, apperrors.KindMissingID)
}

func TestUpdateUser_OnlyTouchesSubmittedFields(t *testing.T) {
	fx := newFixture(t)
	u := fx.register(t, "a@b.com", "secret")

	_, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: u.ID, Name: strPtr("Bea")})
	require.NoError(t, err)
	updated, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: u.ID, IsBlocked: boolPtr(true)})
	require.NoError(t, err)

	assert.Equal(t, u.ID, updated.ID)
	assert.Equal(t, "Bea", updated.Name)
	assert.True(t, updated.IsBlocked)
	assert.Equal(t, "a@b.com", updated.Email)
	assert.Equal(t, u.PasswordHash, updated.PasswordHash)
	assert.Equal(t, u.SignUpDate, updated.SignUpDate)
}

func TestUpdateUser_PasswordIsRehashed(t *testing.T) {
	fx := newFixture(t)
	u := fx.register(t, "a@b.com", "secret")

	updated, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: u.ID, Password: strPtr("fresh")})
	require.NoError(t, err)

	assert.NotEqual(t, "fresh", updated.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("fresh")))

	_, err = fx.svc.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "fresh"})
	require.NoError(t, err)
}

func TestUpdateUser_NoMatchReturnsNil(t *testing.T) {
	fx := newFixture(t)

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		u, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: id, Name: strPtr("x")})
		require.NoError(t, err)
		assert.Nil(t, u)
	}
}

func TestUpdateUser_EmailCollision(t *testing.T) {
	fx := newFixture(t)
	fx.register(t, "a@b.com", "secret")
	other := fx.register(t, "c@d.com", "secret")

	_, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: other.ID, Email: strPtr("a@b.com")})

	requireKind(t, err, apperrors.KindDuplicateUser)
}

func TestUpdateUser_RejectsInvalidInput(t *testing.T) {
	cases := map[string]UpdateInput{
		"empty email":        {Email: strPtr("")},
		"malformed email":    {Email: strPtr("not-an-email")},
		"password too long":  {Password: strPtr(strings.Repeat("a", 100))},
		"multibyte password": {Password: strPtr(strings.Repeat("€", 30))},
		"empty password":     {Password: strPtr("")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t)
			u := fx.register(t, "a@b.com", "secret")
			in.ID = u.ID

			_, err := fx.svc.UpdateUser(context.Background(), in)

			requireKind(t, err, apperrors.KindValidation)
			de := apperrors.ToDomainError(err)
			assert.Equal(t, 400, de.HTTPStatus)
			assert.NotEmpty(t, de.Details)

			stored := fx.repo.only(t)
			assert.Equal(t, "a@b.com", stored.Email)
			assert.Equal(t, u.PasswordHash, stored.PasswordHash)
		})
	}
}

func TestUpdateUser_Failure(t *testing.T) {
	fx := newFixture(t)
	fx.repo.updateErr = errBoom{}

	_, err := fx.svc.UpdateUser(context.Background(), UpdateInput{ID: uuid.NewString(), Name: strPtr("x")})

	requireKind(t, err, apperrors.KindPersistence)
}

// --- DeleteUser ---

func TestDeleteUser(t *testing.T) {
	fx := newFixture(t)
	u := fx.register(t, "a@b.com", "secret")

	deleted, err := fx.svc.DeleteUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, u.ID, deleted.ID)

	again, err := fx.svc.DeleteUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestDeleteUser_MissingAndInvalidID(t *testing.T) {
	fx := newFixture(t)
	fx.repo.deleteErr = errors.New("must not be reached")

	_, err := fx.svc.DeleteUser(context.Background(), "")
	requireKind(t, err, apperrors.KindMissingID)

	u, err := fx.svc.DeleteUser(context.Background(), "garbage")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDeleteUser_Failure(t *testing.T) {
	fx := newFixture(t)
	fx.repo.deleteErr = errBoom{}

	_, err := fx.svc.DeleteUser(context.Background(), uuid.NewString())

	requireKind(t, err, apperrors.KindPersistence)
}

// --- end to end scenario ---

func TestScenario_RegisterDuplicateLogin(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret"}))
	requireKind(t, fx.svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "secret"}), apperrors.KindDuplicateUser)

	_, err := fx.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "wrong"})
	requireKind(t, err, apperrors.KindInvalidCredentials)

	res, err := fx.svc.Login(ctx, LoginInput{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, fx.repo.only(t).ID, res.UserID)
}
