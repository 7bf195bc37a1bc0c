package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/warden-panel/warden/internal/auth"
)

func main() {
	username := flag.String("username", "admin", "Username to create")
	email := flag.String("email", "admin@example.com", "Email for new user")
	password := flag.String("password", "", "Password for new user")
	dbPath := flag.String("db", "./data/warden.db", "Path to SQLite database")
	cost := flag.Int("cost", 12, "bcrypt cost for the password hash")
	flag.Parse()

	if *password == "" {
		*password = os.Getenv("WARDEN_ADMIN_PASSWORD")
	}
	if *password == "" {
		log.Fatal("Password is required (use -password or set WARDEN_ADMIN_PASSWORD)")
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	var existingID int64
	err = db.QueryRow("SELECT id FROM users WHERE username = ?", *username).Scan(&existingID)
	if err == nil {
		log.Fatalf("User %s already exists (id=%d)", *username, existingID)
	}

	hash, err := auth.NewPasswordHasher(*cost).Hash(*password)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.Exec(`
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`, *username, *email, hash); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("User created successfully!\n")
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("\nIMPORTANT: Change this password after first login!\n")
}
