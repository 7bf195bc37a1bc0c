package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/warden-panel/warden/internal/models"
)

// ErrNotFound is returned when a schedule or task does not exist.
var ErrNotFound = errors.New("schedule not found")

// Store provides CRUD for schedules and their tasks. Execution is the
// daemon's job; the panel only maintains definitions and the computed
// next-run time.
type Store struct {
	db *sql.DB
}

// NewStore creates a new schedule store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateSchedule inserts a schedule after validating its cron expression
// and computing the first next-run time.
func (s *Store) CreateSchedule(ctx context.Context, sched *models.Schedule) error {
	if sched.Cron == "" {
		return &models.ValidationError{Field: "cron", Message: "is required"}
	}

	nextRun, err := computeNextRun(sched.Cron, time.Now())
	if err != nil {
		return &models.ValidationError{Field: "cron", Message: fmt.Sprintf("invalid expression: %v", err)}
	}

	if sched.ID == "" {
		sched.ID = uuid.New().String()
	}
	sched.NextRun = &nextRun
	now := time.Now()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	query := `
		INSERT INTO schedules (id, server_id, name, cron, is_active, next_run, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query,
		sched.ID,
		sched.ServerID,
		sched.Name,
		sched.Cron,
		sched.IsActive,
		sched.NextRun,
		sched.CreatedAt,
		sched.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}

	return nil
}

// UpdateSchedule saves changes to a schedule, recomputing next-run from
// the (possibly changed) cron expression.
func (s *Store) UpdateSchedule(ctx context.Context, sched *models.Schedule) error {
	nextRun, err := computeNextRun(sched.Cron, time.Now())
	if err != nil {
		return &models.ValidationError{Field: "cron", Message: fmt.Sprintf("invalid expression: %v", err)}
	}

	sched.NextRun = &nextRun
	sched.UpdatedAt = time.Now()

	query := `
		UPDATE schedules
		SET name = ?, cron = ?, is_active = ?, next_run = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		sched.Name,
		sched.Cron,
		sched.IsActive,
		sched.NextRun,
		sched.UpdatedAt,
		sched.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetSchedule retrieves a schedule by id.
func (s *Store) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	query := `
		SELECT id, server_id, name, cron, is_active, next_run, created_at, updated_at
		FROM schedules
		WHERE id = ?
	`

	return scanSchedule(s.db.QueryRowContext(ctx, query, id))
}

// ListForServer retrieves all schedules for a server.
func (s *Store) ListForServer(ctx context.Context, serverID string) ([]*models.Schedule, error) {
	query := `
		SELECT id, server_id, name, cron, is_active, next_run, created_at, updated_at
		FROM schedules
		WHERE server_id = ?
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]*models.Schedule, 0)
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sched)
	}

	return schedules, rows.Err()
}

// DeleteSchedule removes a schedule; its tasks go with it via the
// foreign key cascade.
func (s *Store) DeleteSchedule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// CreateTask validates and inserts a task onto a schedule.
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (schedule_id, sequence_id, action, payload, time_offset, is_queued, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		task.ScheduleID,
		task.SequenceID,
		task.Action,
		task.Payload,
		task.TimeOffset,
		task.IsQueued,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read task id: %w", err)
	}
	task.ID = id

	return nil
}

// TasksForSchedule retrieves a schedule's tasks in execution order.
func (s *Store) TasksForSchedule(ctx context.Context, scheduleID string) ([]*models.Task, error) {
	query := `
		SELECT id, schedule_id, sequence_id, action, payload, time_offset, is_queued, created_at, updated_at
		FROM tasks
		WHERE schedule_id = ?
		ORDER BY sequence_id
	`

	rows, err := s.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{}
		if err := rows.Scan(
			&task.ID,
			&task.ScheduleID,
			&task.SequenceID,
			&task.Action,
			&task.Payload,
			&task.TimeOffset,
			&task.IsQueued,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// ServerForTask resolves the server a task ultimately targets, through
// its owning schedule.
func (s *Store) ServerForTask(ctx context.Context, taskID int64) (string, error) {
	query := `
		SELECT s.server_id
		FROM tasks t
		JOIN schedules s ON s.id = t.schedule_id
		WHERE t.id = ?
	`

	var serverID string
	err := s.db.QueryRowContext(ctx, query, taskID).Scan(&serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve task server: %w", err)
	}

	return serverID, nil
}

// MarkTaskQueued flags or clears a task's queued state.
func (s *Store) MarkTaskQueued(ctx context.Context, taskID int64, queued bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET is_queued = ?, updated_at = ? WHERE id = ?`,
		queued, time.Now(), taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	sched := &models.Schedule{}
	var nextRun sql.NullTime

	err := row.Scan(
		&sched.ID,
		&sched.ServerID,
		&sched.Name,
		&sched.Cron,
		&sched.IsActive,
		&nextRun,
		&sched.CreatedAt,
		&sched.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	if nextRun.Valid {
		t := nextRun.Time
		sched.NextRun = &t
	}

	return sched, nil
}

func computeNextRun(expr string, from time.Time) (time.Time, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	parsed, err := parser.Parse(expr)
	if err != nil {
		return time.Time{}, err
	}

	return parsed.Next(from), nil
}
