// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/walkandtalk/models"
)

const insertSessionEvent = `
        INSERT INTO session_events (player_id, kind, color, occurred_at)
        VALUES ($1, $2, $3, $4)
    `

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", DSN(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS session_events (
            id SERIAL PRIMARY KEY,
            player_id BIGINT NOT NULL,
            kind VARCHAR(16) NOT NULL,
            color VARCHAR(7),
            occurred_at TIMESTAMP NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("create session_events: %w", err)
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_session_events_player_id ON session_events(player_id);
        CREATE INDEX IF NOT EXISTS idx_session_events_occurred_at ON session_events(occurred_at);
    `)
	return err
}

func (p *PostgreSQL) Record(ctx context.Context, event models.SessionEvent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.db.ExecContext(ctx, insertSessionEvent,
		event.PlayerID, string(event.Kind), event.Color, event.OccurredAt)
	return err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
