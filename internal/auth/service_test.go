package auth

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/security"
	"taskhub/pkg/config"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

type captureMailer struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureMailer) Send(to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, body)
	return nil
}

var codeRe = regexp.MustCompile(`<strong>(\d{6})</strong>`)

func newTestService() (*Service, *MockRepository, *captureMailer) {
	repo := new(MockRepository)
	mail := &captureMailer{}
	svc := NewService(repo, mail,
		config.JWTConfig{Secret: "test-secret", Expiration: time.Hour},
		config.VerificationConfig{Issuer: "taskhub", CodePeriod: 10 * time.Minute},
		logger.NewNop(),
	)
	return svc, repo, mail
}

// --- Tests ---

func TestRegister(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.On("ExistsByEmail", mock.Anything, "ada@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Ada",
		LastName:  "Obi",
		Email:     " Ada@Example.com ",
		Password:  "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(resp.User.PasswordHash), []byte("supersecret")))
	assert.Equal(t, domain.OnboardingVerifyEmail, resp.User.OnboardingStep())

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, resp.User.ID.String(), claims["user_id"])
}

func TestRegister_Validation(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Register(context.Background(), &RegisterRequest{
		FirstName: "Ada", LastName: "Obi", Email: "not-an-email", Password: "short",
	})
	var fe validator.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "password")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.On("ExistsByEmail", mock.Anything, "ada@example.com").Return(true, nil).Once()

	req := &RegisterRequest{FirstName: "Ada", LastName: "Obi", Email: "ada@example.com", Password: "supersecret"}
	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, errs.ErrUserAlreadyExists)

	// A concurrent insert surfaces as a unique violation.
	repo.On("ExistsByEmail", mock.Anything, "ada@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(&pq.Error{Code: "23505"})
	_, err = svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, errs.ErrUserAlreadyExists)
}

func TestRegisterRequest_Complete(t *testing.T) {
	assert.True(t, (&RegisterRequest{FirstName: "a", LastName: "b", Email: "c", Password: "d"}).Complete())
	assert.False(t, (&RegisterRequest{FirstName: "a", LastName: " ", Email: "c", Password: "d"}).Complete())
	assert.False(t, (&RegisterRequest{}).Complete())
}

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestService()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", PasswordHash: string(hash)}

	repo.On("FindByEmail", mock.Anything, "ada@example.com").Return(user, nil)
	repo.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, errs.ErrUserNotFound)
	repo.On("Update", mock.Anything, user).Return(nil)

	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "ada@example.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotNil(t, user.LastLogin)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "ghost@example.com", Password: "x"})
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
}

func TestVerificationFlow(t *testing.T) {
	svc, repo, mail := newTestService()
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada"}
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	ctx := context.Background()

	_, err := svc.VerifyCode(ctx, user.ID, "123456")
	assert.ErrorIs(t, err, errs.ErrInvalidCode)

	require.NoError(t, svc.SendVerificationCode(ctx, user.ID))
	require.NotNil(t, user.VerificationSecret)
	assert.Equal(t, domain.OnboardingVerifyCode, user.OnboardingStep())

	require.Len(t, mail.sent, 1)
	m := codeRe.FindStringSubmatch(mail.sent[0])
	require.Len(t, m, 2)

	_, err = svc.VerifyCode(ctx, user.ID, "000000x")
	assert.ErrorIs(t, err, errs.ErrInvalidCode)

	verified, err := svc.VerifyCode(ctx, user.ID, m[1])
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.VerificationSecret)
	assert.Equal(t, domain.OnboardingRoleSelection, verified.OnboardingStep())

	// Already verified: nothing more is sent.
	require.NoError(t, svc.SendVerificationCode(ctx, user.ID))
	assert.Len(t, mail.sent, 1)
}

func TestVerificationFlow_SealedSecret(t *testing.T) {
	svc, repo, mail := newTestService()
	box, err := security.NewCipher("")
	require.NoError(t, err)
	svc.WithSecretCipher(box)

	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada"}
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)
	ctx := context.Background()

	require.NoError(t, svc.SendVerificationCode(ctx, user.ID))
	require.NotNil(t, user.VerificationSecret)
	stored := *user.VerificationSecret
	plain, err := box.Decrypt(stored)
	require.NoError(t, err)
	assert.NotEqual(t, plain, stored)

	// A resend keeps the same seed.
	require.NoError(t, svc.SendVerificationCode(ctx, user.ID))
	again, err := box.Decrypt(*user.VerificationSecret)
	require.NoError(t, err)
	assert.Equal(t, plain, again)

	require.Len(t, mail.sent, 2)
	m := codeRe.FindStringSubmatch(mail.sent[1])
	require.Len(t, m, 2)
	verified, err := svc.VerifyCode(ctx, user.ID, m[1])
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
}

func TestSelectRole(t *testing.T) {
	svc, repo, _ := newTestService()
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com", EmailVerified: true}
	repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("Update", mock.Anything, user).Return(nil)

	_, err := svc.SelectRole(context.Background(), user.ID, domain.Role("admin"))
	assert.ErrorIs(t, err, errs.ErrInvalidRole)

	resp, err := svc.SelectRole(context.Background(), user.ID, domain.RoleFulfiller)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFulfiller, resp.User.Role)

	me, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OnboardingSuccess, me.OnboardingStep)
}
