package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"visitgate/internal/audit"
	identitydomain "visitgate/internal/identity/domain"
	ratelimit "visitgate/internal/ratelimit/service"
	"visitgate/internal/security"
	sessiondomain "visitgate/internal/session/domain"
	sessionsvc "visitgate/internal/session/service"
	tenantdomain "visitgate/internal/tenant/domain"
	"visitgate/internal/tenantctx"
)

type memIdentityRepo struct {
	mu sync.Mutex
	m  map[string]*identitydomain.Identity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{m: map[string]*identitydomain.Identity{}}
}

func (r *memIdentityRepo) GetByID(ctx context.Context, id string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	i2 := *i
	return &i2, nil
}

func (r *memIdentityRepo) GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.m {
		if i.Email == email {
			i2 := *i
			return &i2, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i2 := *i
	r.m[i.ID] = &i2
	return nil
}

func (r *memIdentityRepo) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.m[id]; ok {
		i.PasswordHash = passwordHash
	}
	return nil
}

func (r *memIdentityRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.m[id]; ok {
		i.Active = active
	}
	return nil
}

func (r *memIdentityRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

type attempt struct {
	clientAddress string
	action        string
	at            time.Time
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []attempt
}

func (r *memAttemptRepo) CountSince(ctx context.Context, clientAddress, action string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, a := range r.attempts {
		if a.clientAddress == clientAddress && a.action == action && !a.at.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memAttemptRepo) Record(ctx context.Context, clientAddress, action string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt{clientAddress, action, at})
	return nil
}

func (r *memAttemptRepo) Reset(ctx context.Context, clientAddress, action string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	n := 0
	for _, a := range r.attempts {
		if a.clientAddress == clientAddress && a.action == action {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return n, nil
}

func (r *memAttemptRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*sessiondomain.Session{}}
}

func (r *memSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[tokenHash]
	if !ok {
		return nil, nil
	}
	s2 := *s
	return &s2, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s2 := *s
	r.m[s.TokenHash] = &s2
	return nil
}

func (r *memSessionRepo) CountActiveByIdentity(ctx context.Context, identityID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.m {
		if s.IdentityID == identityID && now.Before(s.ExpiresAt) {
			count++
		}
	}
	return count, nil
}

func (r *memSessionRepo) EvictOldestByIdentity(ctx context.Context, identityID string, keep int, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []*sessiondomain.Session
	for _, s := range r.m {
		if s.IdentityID == identityID && now.Before(s.ExpiresAt) {
			active = append(active, s)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].LastActivity.After(active[j].LastActivity) })
	evicted := 0
	for i := keep; i < len(active); i++ {
		delete(r.m, active[i].TokenHash)
		evicted++
	}
	return evicted, nil
}

func (r *memSessionRepo) UpdateLastActivity(ctx context.Context, tokenHash string, at time.Time) error {
	return nil
}

func (r *memSessionRepo) UpdateExpiry(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, tokenHash)
	return nil
}

func (r *memSessionRepo) DeleteAllByIdentity(ctx context.Context, identityID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for h, s := range r.m {
		if s.IdentityID == identityID {
			delete(r.m, h)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*tenantdomain.Tenant
	prefs   map[string]string
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: map[string]*tenantdomain.Tenant{}, prefs: map[string]string{}}
}

func (r *memTenantRepo) GetByID(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, nil
	}
	t2 := *t
	return &t2, nil
}

func (r *memTenantRepo) First(ctx context.Context) (*tenantdomain.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*tenantdomain.Tenant
	for _, t := range r.tenants {
		all = append(all, t)
	}
	if len(all) == 0 {
		return nil, nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	t2 := *all[0]
	return &t2, nil
}

func (r *memTenantRepo) List(ctx context.Context) ([]*tenantdomain.Tenant, error) {
	return nil, nil
}

func (r *memTenantRepo) Create(ctx context.Context, t *tenantdomain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t2 := *t
	r.tenants[t.ID] = &t2
	return nil
}

func (r *memTenantRepo) GetPreference(ctx context.Context, identityID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefs[identityID], nil
}

func (r *memTenantRepo) SetPreference(ctx context.Context, identityID, tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[identityID] = tenantID
	return nil
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []string
}

func (a *recordingAuditor) LogEvent(ctx context.Context, tenantID, identityID, action, resource, metadata string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, action)
}

func (a *recordingAuditor) count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e == action {
			n++
		}
	}
	return n
}

type fixture struct {
	svc        *Service
	identities *memIdentityRepo
	attempts   *memAttemptRepo
	sessions   *memSessionRepo
	tenants    *memTenantRepo
	auditor    *recordingAuditor
	hasher     *security.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	identities := newMemIdentityRepo()
	attempts := &memAttemptRepo{}
	sessions := newMemSessionRepo()
	tenants := newMemTenantRepo()
	auditor := &recordingAuditor{}
	hasher := security.NewHasher(4)

	limiter := ratelimit.NewLimiter(attempts, time.Hour, 5)
	manager := sessionsvc.NewManager(sessions, auditor, time.Hour, 5, false)
	resolver := tenantctx.NewResolver(tenants, auditor)
	svc := NewService(identities, hasher, limiter, manager, resolver, auditor)

	return &fixture{
		svc:        svc,
		identities: identities,
		attempts:   attempts,
		sessions:   sessions,
		tenants:    tenants,
		auditor:    auditor,
		hasher:     hasher,
	}
}

func strptr(s string) *string { return &s }

func (f *fixture) seedManager(t *testing.T, password string) {
	t.Helper()
	ctx := context.Background()
	_ = f.tenants.Create(ctx, &tenantdomain.Tenant{ID: "tenant-7", Name: "hq", CreatedAt: time.Now().UTC()})
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_ = f.identities.Create(ctx, &identitydomain.Identity{
		ID:           "id-42",
		Email:        "manager@example.com",
		Role:         identitydomain.RoleManager,
		TenantID:     strptr("tenant-7"),
		PasswordHash: hash,
		Active:       true,
	})
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.seedManager(t, "Summer2024!xyw")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", "kiosk/1.0")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(res.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(res.Token))
	}
	if res.ExpiresAt.Before(time.Now().UTC()) {
		t.Error("expiry should be in the future")
	}
	want := IdentitySummary{ID: "id-42", Email: "manager@example.com", Role: "manager", TenantID: "tenant-7"}
	if res.Identity != want {
		t.Errorf("identity = %+v, want %+v", res.Identity, want)
	}
	if got := f.auditor.count(audit.ActionLoginSuccess); got != 1 {
		t.Errorf("login_success events = %d, want 1", got)
	}
}

func TestLogin_MissingFieldsAndRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, "", "pw", "manager", "1.2.3.4", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty email: err = %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@b.co", "", "manager", "1.2.3.4", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty password: err = %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@b.co", "pw", "", "1.2.3.4", ""); !errors.Is(err, ErrMissingFields) {
		t.Errorf("empty role: err = %v", err)
	}
	if _, err := f.svc.Login(ctx, "a@b.co", "pw", "wizard", "1.2.3.4", ""); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("unknown role: err = %v", err)
	}
}

func TestLogin_UniformCredentialFailure(t *testing.T) {
	f := newFixture(t)
	f.seedManager(t, "Summer2024!xyw")
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
		role     string
	}{
		{"unknown email", "nobody@example.com", "Summer2024!xyw", "manager"},
		{"wrong password", "manager@example.com", "Wrong.Pass.123", "manager"},
		{"role mismatch", "manager@example.com", "Summer2024!xyw", "admin"},
	}
	for _, tc := range cases {
		if _, err := f.svc.Login(ctx, tc.email, tc.password, tc.role, "1.2.3.4", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want ErrInvalidCredentials", tc.name, err)
		}
	}

	// inactive identity fails the same way
	_ = f.identities.SetActive(ctx, "id-42", false)
	if _, err := f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("inactive: err = %v, want ErrInvalidCredentials", err)
	}

	if got := f.auditor.count(audit.ActionLoginFailure); got != 4 {
		t.Errorf("login_failure events = %d, want 4", got)
	}
	if n, _ := f.attempts.CountSince(ctx, "1.2.3.4", ActionLogin, time.Time{}); n != 4 {
		t.Errorf("recorded attempts = %d, want 4", n)
	}
}

func TestLogin_RateLimitedAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	f.seedManager(t, "Summer2024!xyw")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Login(ctx, "manager@example.com", "Wrong.Pass.123", "manager", "1.2.3.4", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: err = %v", i+1, err)
		}
	}

	// sixth attempt is rejected even with the correct password
	if _, err := f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("sixth attempt: err = %v, want ErrRateLimited", err)
	}

	// a different client address is unaffected
	if _, err := f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "5.6.7.8", ""); err != nil {
		t.Errorf("other address should log in: %v", err)
	}
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	f.seedManager(t, "Summer2024!xyw")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = f.svc.Login(ctx, "manager@example.com", "Wrong.Pass.123", "manager", "1.2.3.4", "")
	}
	if _, err := f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", ""); err != nil {
		t.Fatalf("login at attempt 5: %v", err)
	}
	if n, _ := f.attempts.CountSince(ctx, "1.2.3.4", ActionLogin, time.Time{}); n != 0 {
		t.Errorf("counter = %d after successful login, want 0", n)
	}
}

func TestLogin_SuperAdminResolvesPreference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = f.tenants.Create(ctx, &tenantdomain.Tenant{ID: "tenant-1", Name: "one", CreatedAt: now.Add(-time.Hour)})
	_ = f.tenants.Create(ctx, &tenantdomain.Tenant{ID: "tenant-2", Name: "two", CreatedAt: now})
	hash, _ := f.hasher.Hash("Summer2024!xyw")
	_ = f.identities.Create(ctx, &identitydomain.Identity{
		ID: "id-sa", Email: "sa@example.com", Role: identitydomain.RoleSuperAdmin,
		PasswordHash: hash, Active: true,
	})
	_ = f.tenants.SetPreference(ctx, "id-sa", "tenant-2")

	res, err := f.svc.Login(ctx, "sa@example.com", "Summer2024!xyw", "super_admin", "1.2.3.4", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Identity.TenantID != "tenant-2" {
		t.Errorf("tenant = %q, want preferred tenant-2", res.Identity.TenantID)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.seedManager(t, "Summer2024!xyw")
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := f.svc.Logout(ctx, res.Token, "tenant-7", "id-42"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if n, _ := f.sessions.CountActiveByIdentity(ctx, "id-42", time.Now().UTC()); n != 0 {
		t.Errorf("sessions after logout = %d, want 0", n)
	}
	if got := f.auditor.count(audit.ActionLogout); got != 1 {
		t.Errorf("logout events = %d, want 1", got)
	}
	// idempotent
	if err := f.svc.Logout(ctx, res.Token, "tenant-7", "id-42"); err != nil {
		t.Errorf("second Logout: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.seedManager(t, "Summer2024!xyw")
	ctx := context.Background()

	identity, _ := f.identities.GetByID(ctx, "id-42")

	if err := f.svc.ChangePassword(ctx, identity, "Wrong.Pass.123", "Another.Pass.77"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("wrong current password: err = %v", err)
	}

	var weak *security.WeakPasswordError
	if err := f.svc.ChangePassword(ctx, identity, "Summer2024!xyw", "short"); !errors.As(err, &weak) {
		t.Errorf("weak new password: err = %v", err)
	}

	// seed two live sessions, both must die on a successful change
	_, _ = f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", "")
	_, _ = f.svc.Login(ctx, "manager@example.com", "Summer2024!xyw", "manager", "1.2.3.4", "")

	if err := f.svc.ChangePassword(ctx, identity, "Summer2024!xyw", "Another.Pass.77"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	updated, _ := f.identities.GetByID(ctx, "id-42")
	if !f.hasher.Verify("Another.Pass.77", updated.PasswordHash) {
		t.Error("new password should verify")
	}
	if n, _ := f.sessions.CountActiveByIdentity(ctx, "id-42", time.Now().UTC()); n != 0 {
		t.Errorf("sessions after password change = %d, want 0", n)
	}
	if got := f.auditor.count(audit.ActionPasswordChanged); got != 1 {
		t.Errorf("password_changed events = %d, want 1", got)
	}
}
