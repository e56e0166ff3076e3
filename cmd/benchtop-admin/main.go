package main

import (
	"context"
	"errors"
	"flag"
	"os"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/config"
	"github.com/benchtop-io/benchtop/pkg/store"
)

var (
	migrate     = flag.Bool("migrate", false, "Run database migrations and exit")
	createAdmin = flag.Bool("create-admin", false, "Create an administrator account")
	username    = flag.String("username", "", "Username for the new administrator")
	email       = flag.String("email", "", "Email for the new administrator")
	password    = flag.String("password", "", "Password for the new administrator (or set BENCHTOP_ADMIN_PASSWORD)")
)

// benchtop-admin is the operator tool. Registration over the API never
// mints administrators, so the first admin has to come from here.
func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if !*migrate && !*createAdmin {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer st.Close()

	ctx := context.Background()

	if *migrate {
		if err := st.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("Migrations failed")
		}
		log.Info("Migrations applied")
	}

	if *createAdmin {
		if err := runCreateAdmin(ctx, st, cfg, log); err != nil {
			log.WithError(err).Fatal("Failed to create administrator")
		}
	}
}

func runCreateAdmin(ctx context.Context, st *store.Store, cfg *config.Config, log *logrus.Logger) error {
	if *username == "" || *email == "" {
		return errors.New("both -username and -email are required")
	}

	pass := *password
	if pass == "" {
		pass = os.Getenv("BENCHTOP_ADMIN_PASSWORD")
	}
	if pass == "" {
		return errors.New("no password given, use -password or BENCHTOP_ADMIN_PASSWORD")
	}

	digest, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost).Hash(pass)
	if err != nil {
		return err
	}

	session, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	defer session.Rollback()

	user := &auth.User{
		Username:     *username,
		Email:        *email,
		PasswordHash: digest,
		IsAdmin:      true,
	}
	if err := session.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return errors.New("username already taken")
		}
		return err
	}
	if err := session.Commit(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"username": user.Username,
		"id":       user.ID,
	}).Info("Administrator created")
	return nil
}
