package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/LovationAdmin/dayclap-api/utils"
)

func InitDB(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		totp_secret VARCHAR(255),
		totp_enabled BOOLEAN DEFAULT FALSE,
		theme VARCHAR(20) NOT NULL DEFAULT 'system',
		language VARCHAR(20) NOT NULL DEFAULT 'en',
		timezone VARCHAR(100) NOT NULL DEFAULT 'UTC',
		currency VARCHAR(3) NOT NULL DEFAULT 'USD',
		notifications JSONB NOT NULL DEFAULT '{}',
		push_subscription JSONB,
		current_company_id UUID,
		last_activity TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		token_hash CHAR(64) UNIQUE NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	// Sessions used to store the refresh token itself. Those rows cannot be
	// hashed after the fact, so they are dropped and users sign in again.
	`DO $$
	BEGIN
		IF EXISTS (SELECT 1 FROM information_schema.columns
			WHERE table_name = 'sessions' AND column_name = 'refresh_token') THEN
			DELETE FROM sessions;
			ALTER TABLE sessions RENAME COLUMN refresh_token TO token_hash;
			ALTER TABLE sessions ALTER COLUMN token_hash TYPE CHAR(64);
		END IF;
	END $$`,

	`CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS company_members (
		company_id UUID REFERENCES companies(id) ON DELETE CASCADE,
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		joined_at TIMESTAMPTZ DEFAULT NOW(),
		PRIMARY KEY (company_id, user_id)
	)`,

	`DO $$ BEGIN
		ALTER TABLE users ADD CONSTRAINT fk_users_current_company
			FOREIGN KEY (current_company_id) REFERENCES companies(id) ON DELETE SET NULL;
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,

	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(255) NOT NULL,
		event_at TIMESTAMPTZ,
		all_day BOOLEAN NOT NULL DEFAULT FALSE,
		date VARCHAR(10),
		time VARCHAR(5),
		location TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		event_tasks JSONB NOT NULL DEFAULT '[]',
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		company_id UUID REFERENCES companies(id) ON DELETE CASCADE,
		one_week_reminder_sent_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_date DATE,
		priority VARCHAR(10) NOT NULL DEFAULT 'medium',
		category VARCHAR(100) NOT NULL DEFAULT '',
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		dismissed BOOLEAN NOT NULL DEFAULT FALSE,
		expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		user_id UUID REFERENCES users(id) ON DELETE CASCADE,
		company_id UUID REFERENCES companies(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS invitations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		sender_id UUID REFERENCES users(id) ON DELETE CASCADE,
		sender_email VARCHAR(255) NOT NULL,
		recipient_email VARCHAR(255) NOT NULL,
		company_id UUID REFERENCES companies(id) ON DELETE CASCADE,
		company_name VARCHAR(255) NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS email_settings (
		id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		sending_key TEXT NOT NULL DEFAULT '',
		api_endpoint TEXT NOT NULL DEFAULT '',
		default_sender TEXT NOT NULL DEFAULT '',
		scheduler_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		reminder_time VARCHAR(5) NOT NULL DEFAULT '02:00',
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,
	`INSERT INTO email_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,

	`CREATE TABLE IF NOT EXISTS email_templates (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(100) UNIQUE NOT NULL,
		subject TEXT NOT NULL,
		html_content TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_company_members_user_id ON company_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_company_at ON events(company_id, event_at)`,
	`CREATE INDEX IF NOT EXISTS idx_events_reminder ON events(event_at) WHERE one_week_reminder_sent_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_company_due ON tasks(company_id, due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_recipient ON invitations(recipient_email)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_cooldown ON invitations(sender_id, recipient_email, company_id, created_at DESC)`,
}

// RunMigrations creates the schema and seeds the default email templates.
// Every statement is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i, err)
		}
	}

	for _, tpl := range utils.DefaultEmailTemplates {
		_, err := db.ExecContext(ctx, `
			INSERT INTO email_templates (name, subject, html_content)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO NOTHING
		`, tpl.Name, tpl.Subject, tpl.HTML)
		if err != nil {
			return fmt.Errorf("failed to seed template %s: %w", tpl.Name, err)
		}
	}

	return nil
}
