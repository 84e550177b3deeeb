package handlers

import (
	"github.com/vinaysb/mindcare-navigator/internal/chat"
	"github.com/vinaysb/mindcare-navigator/internal/config"
	"github.com/vinaysb/mindcare-navigator/internal/memory"
	"github.com/vinaysb/mindcare-navigator/internal/store"
	"github.com/vinaysb/mindcare-navigator/internal/store/rabbitmq"
)

type Handler struct {
	Cfg     config.Config
	Store   store.Store
	Mode    store.Mode
	ChatSvc *chat.Service

	// Jobs is nil when storage degraded off the relational tier; Rabbit is
	// nil when the broker is unreachable. Either disables the async path.
	Jobs   store.JobStore
	Rabbit *rabbitmq.Publisher
}

func NewHandler(cfg config.Config, st store.Store, mode store.Mode, rabbit *rabbitmq.Publisher) *Handler {
	cascade := chat.NewCascadeFromConfig(cfg)
	svc := chat.NewService(st, cascade, memory.NewManager(st))

	var jobs store.JobStore
	if js, ok := st.(store.JobStore); ok {
		jobs = js
	}

	return &Handler{
		Cfg:     cfg,
		Store:   st,
		Mode:    mode,
		ChatSvc: svc,
		Jobs:    jobs,
		Rabbit:  rabbit,
	}
}
