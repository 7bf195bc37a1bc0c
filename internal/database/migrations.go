package database

// Migration represents a database migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// migrations contains all database migrations in order
var migrations = []Migration{
	{
		Version: "001_init",
		Up: `
-- Users table (panel operators)
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_users_username ON users(username);

-- Game server instances managed by the panel. The status column is NULL
-- while a server is idle; a non-null value marks an exclusive transient
-- state (installing, restoring_backup, suspended).
CREATE TABLE servers (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT,
    backup_limit INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Backup records. uuid is the external handle shared with the daemon;
-- completed_at stays NULL while the daemon is still working.
CREATE TABLE backups (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT UNIQUE NOT NULL,
    server_id TEXT NOT NULL,
    name TEXT NOT NULL,
    disk TEXT NOT NULL,
    ignored_files TEXT NOT NULL DEFAULT '[]',
    checksum TEXT,
    bytes INTEGER NOT NULL DEFAULT 0,
    is_successful BOOLEAN NOT NULL DEFAULT 0,
    completed_at DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME,
    FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
);

CREATE INDEX idx_backups_server ON backups(server_id);
CREATE UNIQUE INDEX idx_backups_uuid ON backups(uuid);

-- Schedules group an ordered sequence of tasks per server.
CREATE TABLE schedules (
    id TEXT PRIMARY KEY,
    server_id TEXT NOT NULL,
    name TEXT NOT NULL,
    cron TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT 1,
    next_run DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (server_id) REFERENCES servers(id) ON DELETE CASCADE
);

CREATE INDEX idx_schedules_server ON schedules(server_id);

-- Tasks are single steps of a schedule; sequence_id orders them and
-- time_offset delays each step relative to the previous one.
CREATE TABLE tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    schedule_id TEXT NOT NULL,
    sequence_id INTEGER NOT NULL,
    action TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '',
    time_offset INTEGER NOT NULL DEFAULT 0,
    is_queued BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (schedule_id) REFERENCES schedules(id) ON DELETE CASCADE,
    UNIQUE (schedule_id, sequence_id)
);

CREATE INDEX idx_tasks_schedule ON tasks(schedule_id);

-- Audit log rows are written in the same transaction as the domain
-- mutation they describe.
CREATE TABLE audit_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    uuid TEXT UNIQUE NOT NULL,
    server_id TEXT,
    user_id INTEGER,
    action TEXT NOT NULL,
    metadata TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX idx_audit_server ON audit_log(server_id);
CREATE INDEX idx_audit_action ON audit_log(action);
`,
		Down: `
DROP TABLE IF EXISTS audit_log;
DROP TABLE IF EXISTS tasks;
DROP TABLE IF EXISTS schedules;
DROP TABLE IF EXISTS backups;
DROP TABLE IF EXISTS servers;
DROP TABLE IF EXISTS users;
`,
	},
}
