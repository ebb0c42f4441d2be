package tenantctx

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"visitgate/internal/audit"
	identitydomain "visitgate/internal/identity/domain"
	tenantdomain "visitgate/internal/tenant/domain"
)

type memTenantRepo struct {
	mu      sync.Mutex
	tenants map[string]*tenantdomain.Tenant
	prefs   map[string]string
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{
		tenants: map[string]*tenantdomain.Tenant{},
		prefs:   map[string]string{},
	}
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
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*tenantdomain.Tenant
	for _, t := range r.tenants {
		t2 := *t
		all = append(all, &t2)
	}
	return all, nil
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

func strptr(s string) *string { return &s }

func superAdmin() *identitydomain.Identity {
	return &identitydomain.Identity{ID: "id-sa", Email: "sa@example.com", Role: identitydomain.RoleSuperAdmin}
}

func manager(tenantID string) *identitydomain.Identity {
	return &identitydomain.Identity{ID: "id-42", Email: "m@example.com", Role: identitydomain.RoleManager, TenantID: strptr(tenantID)}
}

func TestResolveTenant_FixedForNonSuperAdmin(t *testing.T) {
	repo := newMemTenantRepo()
	_ = repo.Create(context.Background(), &tenantdomain.Tenant{ID: "tenant-7", Name: "seven"})
	// even a stored preference must be ignored for pinned roles
	_ = repo.SetPreference(context.Background(), "id-42", "tenant-9")
	r := NewResolver(repo, nil)

	got, err := r.ResolveTenant(context.Background(), manager("tenant-7"))
	if err != nil {
		t.Fatalf("ResolveTenant: %v", err)
	}
	if got != "tenant-7" {
		t.Errorf("tenant = %q, want tenant-7", got)
	}
}

func TestResolveTenant_SuperAdminPreference(t *testing.T) {
	repo := newMemTenantRepo()
	now := time.Now().UTC()
	_ = repo.Create(context.Background(), &tenantdomain.Tenant{ID: "tenant-1", Name: "one", CreatedAt: now.Add(-2 * time.Hour)})
	_ = repo.Create(context.Background(), &tenantdomain.Tenant{ID: "tenant-2", Name: "two", CreatedAt: now})
	r := NewResolver(repo, nil)
	ctx := context.Background()

	// no preference: oldest tenant in the directory
	got, err := r.ResolveTenant(ctx, superAdmin())
	if err != nil {
		t.Fatalf("ResolveTenant: %v", err)
	}
	if got != "tenant-1" {
		t.Errorf("default tenant = %q, want tenant-1", got)
	}

	_ = repo.SetPreference(ctx, "id-sa", "tenant-2")
	got, err = r.ResolveTenant(ctx, superAdmin())
	if err != nil {
		t.Fatalf("ResolveTenant: %v", err)
	}
	if got != "tenant-2" {
		t.Errorf("preferred tenant = %q, want tenant-2", got)
	}
}

func TestResolveTenant_EmptyDirectory(t *testing.T) {
	r := NewResolver(newMemTenantRepo(), nil)
	if _, err := r.ResolveTenant(context.Background(), superAdmin()); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("err = %v, want ErrTenantNotFound", err)
	}
}

func TestSwitchTenant(t *testing.T) {
	repo := newMemTenantRepo()
	auditor := &recordingAuditor{}
	_ = repo.Create(context.Background(), &tenantdomain.Tenant{ID: "tenant-2", Name: "two"})
	r := NewResolver(repo, auditor)
	ctx := context.Background()

	if err := r.SwitchTenant(ctx, manager("tenant-7"), "tenant-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("manager switch: err = %v, want ErrForbidden", err)
	}
	if err := r.SwitchTenant(ctx, superAdmin(), "tenant-404"); !errors.Is(err, ErrTenantNotFound) {
		t.Errorf("unknown tenant: err = %v, want ErrTenantNotFound", err)
	}

	if err := r.SwitchTenant(ctx, superAdmin(), "tenant-2"); err != nil {
		t.Fatalf("SwitchTenant: %v", err)
	}
	if pref, _ := repo.GetPreference(ctx, "id-sa"); pref != "tenant-2" {
		t.Errorf("preference = %q, want tenant-2", pref)
	}
	if got := auditor.count(audit.ActionTenantSwitched); got != 1 {
		t.Errorf("tenant_switched events = %d, want 1", got)
	}

	got, _ := r.ResolveTenant(ctx, superAdmin())
	if got != "tenant-2" {
		t.Errorf("resolved tenant after switch = %q, want tenant-2", got)
	}
}

func TestEnforceIsolation(t *testing.T) {
	repo := newMemTenantRepo()
	auditor := &recordingAuditor{}
	r := NewResolver(repo, auditor)
	ctx := context.Background()

	if err := r.EnforceIsolation(ctx, superAdmin(), "tenant-9"); err != nil {
		t.Errorf("super-admin should pass for any tenant: %v", err)
	}
	if err := r.EnforceIsolation(ctx, manager("tenant-7"), "tenant-7"); err != nil {
		t.Errorf("own tenant should pass: %v", err)
	}

	if err := r.EnforceIsolation(ctx, manager("tenant-7"), "tenant-9"); !errors.Is(err, ErrIsolationViolation) {
		t.Errorf("cross-tenant access: err = %v, want ErrIsolationViolation", err)
	}
	if got := auditor.count(audit.ActionIsolationDenied); got != 1 {
		t.Errorf("isolation audit events = %d, want exactly 1", got)
	}
}
