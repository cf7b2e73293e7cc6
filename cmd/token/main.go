package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/paysync/internal/auth"
	"github.com/flexprice/paysync/internal/config"
	"github.com/flexprice/paysync/internal/types"
)

// token prints a bearer token for local testing against the API
func main() {
	tenantID := flag.String("tenant", types.DefaultTenantID, "Tenant ID")
	userID := flag.String("user", types.DefaultUserID, "User ID")
	email := flag.String("email", "", "Email used for checkouts")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := auth.GenerateToken(cfg.Auth.Secret, auth.Claims{
		UserID:   *userID,
		TenantID: *tenantID,
		Email:    *email,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
