// Dev seeding: creates one user of each role with a known password so the
// workflow can be exercised end to end against a fresh database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"homeservices/pkg/config"
	"homeservices/pkg/db"
)

func main() {
	password := flag.String("password", "changeme", "password assigned to every seeded user")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db open failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	seed := []struct {
		email, name, role string
	}{
		{"admin@example.test", "Administração", "admin"},
		{"cliente@example.test", "Cliente de Teste", "client"},
		{"profissional@example.test", "Profissional de Teste", "professional"},
	}

	const q = `
INSERT INTO users (email, name, role, password_hash)
VALUES ($1, $2, $3, $4)
ON CONFLICT (email) DO NOTHING
`
	for _, u := range seed {
		if _, err := pool.Exec(ctx, q, u.email, u.name, u.role, string(hash)); err != nil {
			fmt.Fprintf(os.Stderr, "seed %s: %v\n", u.email, err)
			os.Exit(1)
		}
		fmt.Printf("seeded %-30s role=%s\n", u.email, u.role)
	}
}
