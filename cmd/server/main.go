package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
	_ "modernc.org/sqlite"

	"restock/internal/adapters/cache"
	emailPkg "restock/internal/adapters/email"
	web "restock/internal/adapters/http"
	"restock/internal/adapters/http/middleware"
	"restock/internal/adapters/metrics"
	"restock/internal/adapters/storage"
	accountStore "restock/internal/adapters/storage/account"
	sessionStore "restock/internal/adapters/storage/session"
	supplierStore "restock/internal/adapters/storage/supplier"
	"restock/internal/application/events"
	"restock/internal/application/orchestrators"
	"restock/internal/application/state"
	"restock/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "restock.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// SQLite with WAL mode, foreign keys, and busy timeout
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Bolt-backed slot for the active email session
	boltDB, err := bolt.Open(cfg.CachePath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		log.Fatalf("failed to open cache database: %v", err)
	}
	defer boltDB.Close()

	draftCache, err := cache.NewBoltCache(boltDB)
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}

	stores := &web.Stores{
		AccountStore:  accountStore.NewSQLiteStore(db),
		SessionStore:  sessionStore.NewSQLiteStore(db),
		SupplierStore: supplierStore.NewSQLiteStore(db),
	}

	if err := seedAdmin(stores.AccountStore, cfg); err != nil {
		log.Fatalf("failed to seed admin account: %v", err)
	}

	// Email sender: Resend when a key is configured, noop otherwise
	var sender emailPkg.Sender
	if cfg.ResendAPIKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendAPIKey, cfg.FromAddress)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		log.Println("Email sender configured (noop; set RESTOCK_RESEND_KEY for real delivery)")
	}

	bus := events.NewBus()
	server := &web.Server{
		Stores:      stores,
		State:       state.NewStore(draftCache),
		Sender:      sender,
		Bus:         bus,
		Metrics:     metrics.New(),
		Tokens:      middleware.NewTokenStore(),
		FromAddress: cfg.FromAddress,
		ReplyTo:     cfg.ReplyTo,
		GenerateID:  func() string { return uuid.New().String() },
		Now:         time.Now,
	}

	log.Printf("Restock %s starting on %s", version, cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, server.Handler()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// seedAdmin creates the first staff account when the database is empty.
func seedAdmin(accounts accountStore.Store, cfg config.Config) error {
	password := cfg.AdminPassword
	if password == "" {
		password = uuid.New().String()
		log.Printf("Generated admin password for %s: %s", cfg.AdminEmail, password)
	}

	return orchestrators.ExecuteSeedAdmin(context.Background(), orchestrators.CreateAccountInput{
		Email:       cfg.AdminEmail,
		Password:    password,
		StoreName:   cfg.StoreName,
		DisplayName: "Store Manager",
	}, orchestrators.CreateAccountDeps{
		Accounts:   accounts,
		GenerateID: func() string { return uuid.New().String() },
		Now:        time.Now,
	})
}
