package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/DphenomenalALU/class-mate/internal/assistant"
	"github.com/DphenomenalALU/class-mate/internal/escalation"
	"github.com/DphenomenalALU/class-mate/internal/models"
	"github.com/DphenomenalALU/class-mate/internal/queue"
	"github.com/DphenomenalALU/class-mate/internal/session"
)

// Connect opens the MySQL connection and fails hard on error; the process
// cannot do anything useful without a database.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	return gdb
}

// Migrate creates/updates all tables owned by this service.
func Migrate(gdb *gorm.DB) {
	if err := gdb.AutoMigrate(
		&models.User{},
		&assistant.Assistant{},
		&session.Session{},
		&queue.Entry{},
		&escalation.Escalation{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
}
