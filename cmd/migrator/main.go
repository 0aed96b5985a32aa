package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Applies the migrations of one service's schema. Run once per service
// database, e.g.:
//
//	migrator -storage-path "user:pwd@localhost:5432/orders?sslmode=disable" -migrations-path ./migrations/order
func main() {
	var storagePath, migrationsPath string

	flag.StringVar(&storagePath, "storage-path", "", "postgres connection string without the scheme")
	flag.StringVar(&migrationsPath, "migrations-path", "", "path to the service's migrations directory")
	flag.Parse()

	if storagePath == "" {
		storagePath = os.Getenv("STORAGE_PATH")
		if storagePath == "" {
			panic("empty storage path")
		}
	}
	if migrationsPath == "" {
		migrationsPath = os.Getenv("MIGRATIONS_PATH")
		if migrationsPath == "" {
			panic("empty migrations path")
		}
	}

	m, err := migrate.New(
		"file://"+migrationsPath,
		fmt.Sprintf("postgres://%s", storagePath),
	)
	if err != nil {
		panic(err)
	}

	if err = m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return
		}
		panic(err)
	}
}
