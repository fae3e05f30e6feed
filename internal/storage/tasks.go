package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"taskdeck/internal/task"
)

const taskColumns = `id, title, description, completed, priority, category, due_date, created_at`

// ListTasks returns every task owned by owner, newest first.
func (s *Store) ListTasks(ctx context.Context, owner string) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, id DESC;`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, owner string, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?;`, owner, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, ErrNotFound
	}
	return t, err
}

// InsertTask persists t under owner and returns it with the assigned id.
// t.ID is ignored.
func (s *Store) InsertTask(ctx context.Context, owner string, t task.Task) (task.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (owner_id, title, description, completed, priority, category, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		owner, t.Title, t.Description, boolToInt(t.Completed), string(t.Priority),
		nullString(t.Category), nullString(t.DueDate), formatTime(t.CreatedAt))
	if err != nil {
		return task.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return task.Task{}, err
	}
	t.ID = id
	t.CreatedAt = parseTime(formatTime(t.CreatedAt))
	return t, nil
}

// UpdateTask writes the fields set in p. It returns ErrNotFound when owner
// has no task with that id.
func (s *Store) UpdateTask(ctx context.Context, owner string, id int64, p task.Patch) error {
	var sets []string
	var args []any
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolToInt(*p.Completed))
	}
	if p.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*p.Priority))
	}
	if p.Category.Set {
		sets = append(sets, "category = ?")
		args = append(args, nullString(p.Category.Value))
	}
	if p.DueDate.Set {
		sets = append(sets, "due_date = ?")
		args = append(args, nullString(p.DueDate.Value))
	}
	if len(sets) == 0 {
		_, err := s.GetTask(ctx, owner, id)
		return err
	}

	args = append(args, owner, id)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE owner_id = ? AND id = ?;`, args...)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) DeleteTask(ctx context.Context, owner string, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ? AND id = ?;`, owner, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (task.Task, error) {
	var t task.Task
	var completed int
	var priority, createdStr string
	var category, due sql.NullString
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &completed, &priority, &category, &due, &createdStr); err != nil {
		return task.Task{}, err
	}
	t.Completed = completed == 1
	t.Priority = task.Priority(priority)
	if category.Valid {
		t.Category = &category.String
	}
	if due.Valid {
		t.DueDate = &due.String
	}
	t.CreatedAt = parseTime(createdStr)
	return t, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
