package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/mailextract/internal/model"
)

type eventRow struct {
	ID           string    `db:"id"`
	Summary      string    `db:"summary"`
	StartDate    string    `db:"start_date"`
	EndDate      string    `db:"end_date"`
	AllDay       int       `db:"all_day"`
	Attendees    string    `db:"attendees"`
	Description  string    `db:"description"`
	Category     string    `db:"category"`
	CalendarName string    `db:"calendar_name"`
	CreatedAt    time.Time `db:"created_at"`
}

type taskRow struct {
	ID           string    `db:"id"`
	Summary      string    `db:"summary"`
	DueDate      string    `db:"due_date"`
	InitialDate  string    `db:"initial_date"`
	AllDay       int       `db:"all_day"`
	Description  string    `db:"description"`
	Category     string    `db:"category"`
	CalendarName string    `db:"calendar_name"`
	CreatedAt    time.Time `db:"created_at"`
}

// CreateEvent stores an event. It implements the calendar half of
// extract.Sink.
func (s *SQLiteStore) CreateEvent(ctx context.Context, rec model.EventRecord) error {
	if strings.TrimSpace(rec.Summary) == "" {
		return fmt.Errorf("event summary must not be empty")
	}
	if rec.StartDate == "" {
		return fmt.Errorf("event start date must not be empty")
	}

	attendees, err := encodeList(rec.Attendees)
	if err != nil {
		return fmt.Errorf("encoding attendees: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, summary, start_date, end_date, all_day,
			attendees, description, category, calendar_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), rec.Summary, rec.StartDate, rec.EndDate, boolToInt(rec.ForceAllDay),
		attendees, rec.Description, rec.Category, rec.CalendarName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// CreateTask stores a task.
func (s *SQLiteStore) CreateTask(ctx context.Context, rec model.TaskRecord) error {
	if strings.TrimSpace(rec.Summary) == "" {
		return fmt.Errorf("task summary must not be empty")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, summary, due_date, initial_date, all_day,
			description, category, calendar_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), rec.Summary, rec.DueDate, rec.InitialDate, boolToInt(rec.ForceAllDay),
		rec.Description, rec.Category, rec.CalendarName, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// ListEvents returns stored events, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, filter ListFilter) ([]StoredEvent, error) {
	var rows []eventRow
	query := "SELECT * FROM events ORDER BY created_at DESC, rowid DESC" + paginate(filter)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}

	events := make([]StoredEvent, 0, len(rows))
	for _, r := range rows {
		attendees, err := decodeList(r.Attendees)
		if err != nil {
			return nil, fmt.Errorf("decoding attendees of event %s: %w", r.ID, err)
		}
		events = append(events, StoredEvent{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			EventRecord: model.EventRecord{
				Summary:      r.Summary,
				StartDate:    r.StartDate,
				EndDate:      r.EndDate,
				ForceAllDay:  r.AllDay != 0,
				Attendees:    attendees,
				Description:  r.Description,
				Category:     r.Category,
				CalendarName: r.CalendarName,
			},
		})
	}
	return events, nil
}

// ListTasks returns stored tasks, newest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter ListFilter) ([]StoredTask, error) {
	var rows []taskRow
	query := "SELECT * FROM tasks ORDER BY created_at DESC, rowid DESC" + paginate(filter)
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	tasks := make([]StoredTask, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, StoredTask{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			TaskRecord: model.TaskRecord{
				Summary:      r.Summary,
				DueDate:      r.DueDate,
				InitialDate:  r.InitialDate,
				ForceAllDay:  r.AllDay != 0,
				Description:  r.Description,
				Category:     r.Category,
				CalendarName: r.CalendarName,
			},
		})
	}
	return tasks, nil
}

// paginate renders the LIMIT/OFFSET clause for filter. SQLite needs a
// LIMIT before any OFFSET.
func paginate(filter ListFilter) string {
	var clause string
	switch {
	case filter.Limit > 0:
		clause = fmt.Sprintf(" LIMIT %d", filter.Limit)
	case filter.Offset > 0:
		clause = " LIMIT -1"
	}
	if filter.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}
	return clause
}
