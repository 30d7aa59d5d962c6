package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/devportal/internal/core/domain"
)

// DevPool is an in-memory Provider for local development and tests. It mimics
// the hosted pool's flows (confirmation codes, password reset) without any
// network dependency.
//
// IMPORTANT: Only enabled when identity.mode=dev. Never use in production.
type DevPool struct {
	mu       sync.RWMutex
	users    map[string]*devUser
	sessions map[string]string // access token -> email
}

type devUser struct {
	email        string
	name         string
	passwordHash []byte
	vendors      []string
	isAdmin      bool
	confirmed    bool
	enabled      bool
	confirmCode  string
	resetCode    string
}

// NewDevPool creates an empty in-memory pool.
func NewDevPool() *DevPool {
	return &DevPool{
		users:    make(map[string]*devUser),
		sessions: make(map[string]string),
	}
}

// SeedUser adds a confirmed, enabled user directly. Used by dev bootstrap
// and tests.
func (p *DevPool) SeedUser(email, name, password string, vendors []string, isAdmin bool) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[email] = &devUser{
		email:        email,
		name:         name,
		passwordHash: hash,
		vendors:      append([]string(nil), vendors...),
		isAdmin:      isAdmin,
		confirmed:    true,
		enabled:      true,
	}
	return nil
}

// PendingConfirmationCode returns the signup confirmation code for an email,
// or "" if none is pending. Dev mode sends no email, so the code is read here.
func (p *DevPool) PendingConfirmationCode(email string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u, ok := p.users[email]; ok {
		return u.confirmCode
	}
	return ""
}

// PendingResetCode returns the password reset code for an email, or "".
func (p *DevPool) PendingResetCode(email string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if u, ok := p.users[email]; ok {
		return u.resetCode
	}
	return ""
}

func (p *DevPool) Login(ctx context.Context, email, password string) (*Tokens, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return nil, domain.NewAuthError("incorrect username or password")
	}
	if !u.confirmed {
		return nil, domain.NewAuthError("account is not confirmed")
	}
	if !u.enabled {
		return nil, domain.NewAuthError("account is disabled")
	}
	if bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)) != nil {
		return nil, domain.NewAuthError("incorrect username or password")
	}

	token := "tok_" + newCode()
	p.sessions[token] = email
	return &Tokens{AccessToken: token, ExpiresIn: 3600}, nil
}

func (p *DevPool) SignUp(ctx context.Context, user NewUser) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.NewUpstreamError("failed to hash password", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.users[user.Email]; exists {
		return domain.NewConflictError("user already exists")
	}
	p.users[user.Email] = &devUser{
		email:        user.Email,
		name:         user.Name,
		passwordHash: hash,
		enabled:      true,
		confirmCode:  newCode(),
	}
	return nil
}

func (p *DevPool) ConfirmSignUp(ctx context.Context, email, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	if u.confirmed {
		return nil
	}
	if code == "" || code != u.confirmCode {
		return domain.NewValidationError("invalid confirmation code")
	}
	u.confirmed = true
	u.confirmCode = ""
	return nil
}

func (p *DevPool) ForgotPassword(ctx context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	u.resetCode = newCode()
	return nil
}

func (p *DevPool) ConfirmForgotPassword(ctx context.Context, email, password, code string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.NewUpstreamError("failed to hash password", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	if u.resetCode == "" || code != u.resetCode {
		return domain.NewValidationError("invalid confirmation code")
	}
	u.passwordHash = hash
	u.resetCode = ""
	return nil
}

func (p *DevPool) GetUser(ctx context.Context, accessToken string) (*domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	email, ok := p.sessions[accessToken]
	if !ok {
		return nil, domain.NewAuthError("invalid or expired token")
	}
	u, ok := p.users[email]
	if !ok {
		return nil, domain.NewAuthError("invalid or expired token")
	}
	return u.profile(), nil
}

func (p *DevPool) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.users[email]
	if !ok {
		return nil, domain.NewNotFoundError("user not found")
	}
	return u.profile(), nil
}

func (p *DevPool) AddUserToVendor(ctx context.Context, email, vendorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	for _, v := range u.vendors {
		if v == vendorID {
			return nil
		}
	}
	u.vendors = append(u.vendors, vendorID)
	return nil
}

func (p *DevPool) RemoveUserFromVendor(ctx context.Context, email, vendorID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	vendors := u.vendors[:0]
	for _, v := range u.vendors {
		if v != vendorID {
			vendors = append(vendors, v)
		}
	}
	u.vendors = vendors
	return nil
}

func (p *DevPool) MakeUserAdmin(ctx context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	u.isAdmin = true
	return nil
}

func (p *DevPool) EnableUser(ctx context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[email]
	if !ok {
		return domain.NewNotFoundError("user not found")
	}
	u.enabled = true
	return nil
}

func (p *DevPool) ListUsers(ctx context.Context, filter string) ([]domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var users []domain.User
	for _, u := range p.users {
		if filter != "" && !strings.HasPrefix(u.email, filter) {
			continue
		}
		users = append(users, *u.profile())
	}
	return users, nil
}

func (p *DevPool) ListUsersForVendor(ctx context.Context, vendorID string) ([]domain.User, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var users []domain.User
	for _, u := range p.users {
		for _, v := range u.vendors {
			if v == vendorID {
				users = append(users, *u.profile())
				break
			}
		}
	}
	return users, nil
}

func (u *devUser) profile() *domain.User {
	return &domain.User{
		Email:   u.email,
		Name:    u.name,
		Vendors: append([]string(nil), u.vendors...),
		IsAdmin: u.isAdmin,
	}
}

func newCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
