package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/config"
	"github.com/benchtop-io/benchtop/pkg/store"
)

var (
	purgeSchedule = flag.String("purge-schedule", "30 0 * * *", "Cron schedule for the audit purge (default: 00:30 UTC)")
	countSchedule = flag.String("count-schedule", "0 * * * *", "Cron schedule for the active token count (default: every hour)")
	retention     = flag.Duration("retention", 90*24*time.Hour, "How long audit events are kept")
	runOnce       = flag.Bool("run-once", false, "Run the purge once and exit")
)

// benchtop-janitor runs the periodic maintenance the API server should
// not be doing inline: trimming the audit trail to the retention window
// and reporting how many tokens are live.
func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	auditDB, err := sql.Open(cfg.Storage.Driver, cfg.Storage.URL)
	if err != nil {
		log.Fatalf("Failed to open audit database handle: %v", err)
	}
	defer auditDB.Close()

	trail, err := audit.NewDBLogger(auditDB, cfg.Storage.Driver)
	if err != nil {
		log.Fatalf("Failed to initialize audit trail: %v", err)
	}

	if *runOnce {
		if err := purgeAudit(trail, *retention); err != nil {
			log.Fatalf("Audit purge failed: %v", err)
		}
		return
	}

	c := cron.New()

	_, err = c.AddFunc(*purgeSchedule, func() {
		if err := purgeAudit(trail, *retention); err != nil {
			log.Printf("Audit purge failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule audit purge: %v", err)
	}

	_, err = c.AddFunc(*countSchedule, func() {
		count, err := st.CountActiveTokens(context.Background(), time.Now())
		if err != nil {
			log.Printf("Active token count failed: %v", err)
			return
		}
		log.Printf("%d tokens currently active", count)
	})
	if err != nil {
		log.Fatalf("Failed to schedule token count: %v", err)
	}

	c.Start()
	log.Println("Benchtop janitor started")
	log.Printf("Audit purge schedule: %s (retention %s)", *purgeSchedule, *retention)
	log.Printf("Token count schedule: %s", *countSchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	ctx := c.Stop()
	<-ctx.Done()

	log.Println("Janitor stopped")
}

func purgeAudit(trail *audit.DBLogger, retention time.Duration) error {
	cutoff := time.Now().UTC().Add(-retention)
	log.Printf("Purging audit events older than %s", cutoff.Format(time.RFC3339))

	purged, err := trail.PurgeBefore(context.Background(), cutoff)
	if err != nil {
		return err
	}
	log.Printf("Purged %d audit events", purged)
	return nil
}
