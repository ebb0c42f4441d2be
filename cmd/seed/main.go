// seed inserts the initial tenant and super-admin for a fresh deployment.
// Idempotent: exits without changes when the super-admin email already exists.
// The generated password is printed once; store it and change it on first login.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"visitgate/internal/config"
	"visitgate/internal/db"
	identitydomain "visitgate/internal/identity/domain"
	identityrepo "visitgate/internal/identity/repository"
	"visitgate/internal/security"
	tenantdomain "visitgate/internal/tenant/domain"
	tenantrepo "visitgate/internal/tenant/repository"
)

const (
	seedTenantName      = "Head Office"
	seedSuperAdminEmail = "admin@visitgate.local"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	identities := identityrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)

	existing, err := identities.GetByEmail(ctx, seedSuperAdminEmail)
	if err != nil {
		log.Fatalf("seed: lookup super-admin: %v", err)
	}
	if existing != nil {
		log.Printf("seed: %s already exists, nothing to do", seedSuperAdminEmail)
		return
	}

	tenant, err := tenants.First(ctx)
	if err != nil {
		log.Fatalf("seed: first tenant: %v", err)
	}
	if tenant == nil {
		tenant = &tenantdomain.Tenant{
			ID:        uuid.New().String(),
			Name:      seedTenantName,
			CreatedAt: time.Now().UTC(),
		}
		if err := tenants.Create(ctx, tenant); err != nil {
			log.Fatalf("seed: create tenant: %v", err)
		}
		log.Printf("seed: created tenant %q (%s)", tenant.Name, tenant.ID)
	}

	password, err := security.GeneratePassword(security.DefaultGeneratedLength)
	if err != nil {
		log.Fatalf("seed: generate password: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("seed: hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &identitydomain.Identity{
		ID:           uuid.New().String(),
		Email:        seedSuperAdminEmail,
		Role:         identitydomain.RoleSuperAdmin,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := admin.Validate(); err != nil {
		log.Fatalf("seed: invalid super-admin: %v", err)
	}
	if err := identities.Create(ctx, admin); err != nil {
		log.Fatalf("seed: create super-admin: %v", err)
	}

	fmt.Printf("super-admin created\n  email:    %s\n  password: %s\n", seedSuperAdminEmail, password)
	fmt.Println("store this password now; it is not shown again")
}
