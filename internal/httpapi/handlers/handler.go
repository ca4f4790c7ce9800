package handlers

import (
	"gorm.io/gorm"

	"github.com/DphenomenalALU/class-mate/internal/assistant"
	"github.com/DphenomenalALU/class-mate/internal/config"
	"github.com/DphenomenalALU/class-mate/internal/email"
	"github.com/DphenomenalALU/class-mate/internal/escalation"
	"github.com/DphenomenalALU/class-mate/internal/models"
	"github.com/DphenomenalALU/class-mate/internal/queue"
	"github.com/DphenomenalALU/class-mate/internal/session"
	"github.com/DphenomenalALU/class-mate/internal/store/redisstore"
	"github.com/DphenomenalALU/class-mate/internal/tavus"
)

type Handler struct {
	DB          *gorm.DB
	Cfg         config.Config
	Redis       *redisstore.Store
	SMTPSetting email.SMTPConfig

	QueueSvc      *queue.Service
	SessionSvc    *session.Service
	EscalationSvc *escalation.Service
	AssistantSvc  *assistant.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, notifier escalation.Notifier) *Handler {
	var statusCache queue.StatusCache
	if rds != nil {
		statusCache = rds
	}
	queueSvc := queue.NewService(queue.NewRepo(db), statusCache)

	var tv *tavus.Client
	if cfg.TavusAPIKey != "" {
		tv = tavus.NewClient(cfg.TavusBaseURL, cfg.TavusAPIKey)
	}

	assistantRepo := assistant.NewRepo(db)
	sessionRepo := session.NewRepo(db)

	var starter session.ConversationStarter
	var syncer assistant.PersonaSyncer
	if tv != nil {
		starter = tv
		syncer = tv
	}

	sessionSvc := session.NewService(sessionRepo, assistantRepo, starter, session.Defaults{
		ReplicaID: cfg.DefaultReplicaID,
		PersonaID: cfg.DefaultPersonaID,
	})
	assistantSvc := assistant.NewService(assistantRepo, syncer)

	smtp := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}

	escalationSvc := escalation.NewService(
		escalation.NewRepo(db),
		sessionRepo,
		assistantRepo,
		models.Directory{DB: db},
		notifier,
		email.Sender{Cfg: smtp},
	)

	return &Handler{
		DB:          db,
		Cfg:         cfg,
		Redis:       rds,
		SMTPSetting: smtp,

		QueueSvc:      queueSvc,
		SessionSvc:    sessionSvc,
		EscalationSvc: escalationSvc,
		AssistantSvc:  assistantSvc,
	}
}
