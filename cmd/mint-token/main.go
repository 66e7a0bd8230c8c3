package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/coursekit/livequiz-backend/internal/config"
	"github.com/coursekit/livequiz-backend/internal/service"
)

// mint-token issues a development JWT so presenters and students can be
// exercised with curl before an identity provider is wired in.
func main() {
	var (
		userID string
		role   string
	)
	flag.StringVar(&userID, "user", "", "Subject identifier to embed in the token")
	flag.StringVar(&role, "role", "student", "Token role: student or presenter")
	flag.Parse()

	if userID == "" {
		log.Fatal("-user is required")
	}

	var tokenType service.TokenType
	switch role {
	case "student":
		tokenType = service.TokenTypeStudent
	case "presenter":
		tokenType = service.TokenTypePresenter
	default:
		log.Fatalf("Unknown role %q (want student or presenter)", role)
	}

	cfg := config.Load()
	authService := service.NewAuthService(cfg)

	token, err := authService.GenerateToken(userID, tokenType)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
