// Package main 初始化默认租户与 Milvus 人脸集合
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"mam-search-api/internal/config"
	"mam-search-api/internal/domain/entity"
	"mam-search-api/internal/wire"
	"mam-search-api/pkg/utils"
)

const devTokenTTL = 24 * time.Hour

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize bootstrap: %v", err)
	}
	defer cleanup()

	// 1. 默认租户
	code := cfg.Tenancy.DefaultCode
	if code == "" {
		code = "default"
	}
	tenant, err := deps.TenantRepo.GetByCode(ctx, code)
	if err != nil {
		log.Fatalf("failed to look up tenant: %v", err)
	}
	if tenant == nil {
		fmt.Printf("Creating default tenant: %s...\n", code)
		tenant = entity.NewTenant(code, "Default Tenant", "default")
		if err := deps.TenantRepo.Create(ctx, tenant); err != nil {
			log.Fatalf("failed to create default tenant: %v", err)
		}
		fmt.Printf("Default tenant created with ID: %s\n", tenant.ID)
	} else {
		fmt.Printf("Default tenant already exists with ID: %s\n", tenant.ID)
	}

	// 2. Milvus 人脸集合
	if deps.VectorRepo != nil {
		if err := deps.VectorRepo.EnsureFacesCollection(ctx); err != nil {
			log.Fatalf("failed to ensure faces collection: %v", err)
		}
		fmt.Println("Milvus faces collection ready.")
	} else {
		fmt.Println("Milvus disabled, skipping faces collection.")
	}

	// 3. 开发环境访问令牌
	if role := os.Getenv("BOOTSTRAP_TOKEN_ROLE"); role != "" && cfg.Security.JWT.Enabled {
		if !entity.UserRole(role).IsValid() {
			log.Fatalf("invalid BOOTSTRAP_TOKEN_ROLE: %s", role)
		}
		jwt := utils.NewJWTManager(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)
		ttl := cfg.Security.JWT.Expiration
		if ttl <= 0 {
			ttl = devTokenTTL
		}
		token, err := jwt.GenerateAccessToken(tenant.ID, "bootstrap", role, ttl)
		if err != nil {
			log.Fatalf("failed to generate token: %v", err)
		}
		fmt.Printf("Access token (%s, %s):\n%s\n", role, ttl, token)
	}

	fmt.Println("Bootstrap completed successfully.")
}
