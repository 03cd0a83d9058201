package main

import (
	"fmt"
	"log"
	"os"

	"deal-chain.backend/internal/config"
	"deal-chain.backend/pkg/jwt"
)

var (
	printfFn        = fmt.Printf
	generateTokenFn = generateToken
	fatalfFn        = log.Fatalf
)

func resolvePrincipal(args []string) (string, string) {
	userID := "dev-user-1"
	email := "dev@example.com"
	if len(args) > 0 {
		userID = args[0]
	}
	if len(args) > 1 {
		email = args[1]
	}
	return userID, email
}

func generateToken(userID, email string) (string, error) {
	cfg := config.Load()
	svc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)
	return svc.GenerateToken(userID, email)
}

func main() {
	userID, email := resolvePrincipal(os.Args[1:])

	printfFn("Generating bearer token for %s (%s)\n", userID, email)

	token, err := generateTokenFn(userID, email)
	if err != nil {
		fatalfFn("Failed to generate token: %v", err)
	}

	printfFn("Bearer Token: %s\n", token)
}
