package main

import (
	"log"
	"os"
	"time"

	"github.com/DphenomenalALU/class-mate/internal/config"
	"github.com/DphenomenalALU/class-mate/internal/db"
	"github.com/DphenomenalALU/class-mate/internal/escalation"
	"github.com/DphenomenalALU/class-mate/internal/httpapi"
	"github.com/DphenomenalALU/class-mate/internal/store/rabbitmq"
	"github.com/DphenomenalALU/class-mate/internal/store/redisstore"
)

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	db.Migrate(gdb)

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
		time.Duration(cfg.QueueStatusCacheTTL)*time.Second)
	defer rds.Close()

	// Escalation notification is best-effort: a missing broker only disables
	// facilitator emails, it never blocks the API.
	var notifier escalation.Notifier
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unavailable, escalation notifications disabled: %v", err)
	} else {
		notifier = pub
		defer pub.Close()
	}

	r := httpapi.NewRouter(gdb, cfg, rds, notifier)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("api listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
