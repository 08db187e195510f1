package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/msgpilot/backend/internal/config"
	"github.com/msgpilot/backend/internal/domain"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/internal/repository"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	dryRun := flag.Bool("dry-run", false, "print the DDL without executing it")
	verify := flag.Bool("verify", false, "check that every billing table and index exists")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose || *dryRun {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		DryRun: *dryRun,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if *verify {
		if !runVerify(db) {
			log.Fatal("schema verification failed")
		}
		return
	}

	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if err := middleware.NewAuditLogger(db).Migrate(); err != nil {
		log.Fatalf("Audit log migration failed: %v", err)
	}
	if *dryRun {
		log.Println("[dry-run] no changes were applied")
		return
	}
	log.Println("Migration complete")
}

// runVerify reports missing tables and indexes
func runVerify(db *gorm.DB) bool {
	checks := []struct {
		model interface{}
		index string
	}{
		{&domain.Subscription{}, "UserID"},
		{&domain.Subscription{}, "ExternalSubID"},
		{&domain.BillingEvent{}, "DedupeKey"},
		{&middleware.AuditLog{}, "ResourceID"},
	}

	ok := true
	m := db.Migrator()
	for _, check := range checks {
		if !m.HasTable(check.model) {
			log.Printf("[verify] missing table for %T", check.model)
			ok = false
			continue
		}
		if !m.HasIndex(check.model, check.index) {
			log.Printf("[verify] %T: missing index on %s", check.model, check.index)
			ok = false
		}
	}
	if ok {
		log.Println("[verify] schema OK")
	}
	return ok
}
