// Command setup-client registers a new store on the relay server. Run once
// per client, then hand them the printed slug and secret for their
// storefront configuration.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"relay/internal/config"
	"relay/internal/domain"
	"relay/internal/repository"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	log "github.com/sirupsen/logrus"
)

func prompt(reader *bufio.Reader, label, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", label, fallback)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load configuration")
	}

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("\n=== Relay: New Client Setup ===")
	fmt.Println()

	name := prompt(reader, "Store name (e.g. Turtle Island Jewelry)", "")
	slug := strings.ToLower(prompt(reader, "Store slug (e.g. turtle-island, no spaces)", ""))
	timezone := prompt(reader, "Timezone (e.g. America/Toronto)", "America/Toronto")
	currency := prompt(reader, "Currency symbol (e.g. $, ₹, €)", "$")

	if name == "" {
		log.Fatal("Store name is required")
	}
	if !domain.ValidSlug(slug) {
		log.WithField("slug", slug).Fatal("Slug must be lowercase letters, digits and dashes")
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		log.WithField("error", err).Fatal("Could not generate API secret")
	}
	apiSecret := hex.EncodeToString(secretBytes)

	clientRepository := repository.NewPostgresClientRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientID, err := clientRepository.Create(ctx, domain.CreateClientRequest{
		Slug:           slug,
		Name:           name,
		APISecret:      apiSecret,
		CurrencySymbol: currency,
		Timezone:       timezone,
	})
	if err != nil {
		log.WithField("error", err).Fatal("Could not create client")
	}

	fmt.Printf("\nClient created! ID: %d\n", clientID)
	fmt.Println("\n--- Put these in the storefront configuration ---")
	fmt.Printf("RELAY_SLUG   = %q\n", slug)
	fmt.Printf("RELAY_SECRET = %q\n", apiSecret)
	fmt.Println("\n--- Send this to the store owner (for Telegram /start) ---")
	fmt.Printf("/start %s %s\n\n", slug, apiSecret)
}
