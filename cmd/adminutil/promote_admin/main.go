package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/servigo/servigo/internal/config"
	"github.com/servigo/servigo/internal/models"
	"github.com/servigo/servigo/internal/storage/postgres"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: promote_admin -email user@example.com")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer store.Close()

	user, err := store.FindUserByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("no user found with email %s: %v", *email, err)
	}
	if err := store.SetUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
		log.Fatalf("failed to promote user to admin: %v", err)
	}

	fmt.Printf("User %s promoted to admin.\n", *email)
}
