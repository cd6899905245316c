package mapper

import (
	"WarrenFinSaas/internal/serviceiface"
	"WarrenFinSaas/internal/session"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MapperService struct {
	config   map[string]interface{}
	db       *sql.DB
	pgxPool  *pgxpool.Pool
	sessions *session.Manager
}

func NewMapperService(cfg map[string]interface{}, db *sql.DB, pgxPool *pgxpool.Pool, sessions *session.Manager) serviceiface.Service {
	return &MapperService{config: cfg, db: db, pgxPool: pgxPool, sessions: sessions}
}

func (s *MapperService) Name() string {
	return "mapper"
}

func (s *MapperService) Start() error {
	go StartMapperService(s.config, s.db, s.pgxPool, s.sessions)
	return nil
}

func (s *MapperService) Stop() error {
	// Implement stop logic if needed
	return nil
}
