package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LovationAdmin/dayclap-api/models"
	"github.com/LovationAdmin/dayclap-api/utils"
)

type TaskService struct {
	db *sql.DB
}

func NewTaskService(db *sql.DB) *TaskService {
	return &TaskService{db: db}
}

// due_date is a DATE; it is read through to_char so it never becomes a
// time.Time at UTC midnight.
const taskColumns = `
	id, title, description, COALESCE(to_char(due_date, 'YYYY-MM-DD'), ''), priority, category,
	completed, dismissed, expense, user_id, company_id, created_at, updated_at
`

func scanTask(row rowScanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Category,
		&t.Completed, &t.Dismissed, &t.Expense, &t.UserID, &t.CompanyID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// validateTaskRequest trims input and checks the due date format.
func validateTaskRequest(req *models.TaskRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	req.DueDate = strings.TrimSpace(req.DueDate)
	if req.DueDate != "" {
		if _, ok := utils.ParseLocalDate(req.DueDate, time.UTC); !ok {
			return fmt.Errorf("%w: due_date must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	req.Priority = models.NormalizePriority(req.Priority)
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)
	return nil
}

func expenseOf(req models.TaskRequest) float64 {
	if req.Expense == nil || *req.Expense < 0 {
		return 0
	}
	return *req.Expense
}

func (s *TaskService) Create(ctx context.Context, sess *models.Session, req models.TaskRequest) (*models.Task, error) {
	companyID := strings.TrimSpace(req.CompanyID)
	if companyID == "" {
		companyID = sess.CurrentCompanyID
	}
	if !sess.IsMember(companyID) {
		return nil, ErrNotMember
	}
	if err := validateTaskRequest(&req); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	task, err := scanTask(s.db.QueryRowContext(ctx, `
		INSERT INTO tasks (id, title, description, due_date, priority, category, expense, user_id, company_id)
		VALUES ($1, $2, $3, NULLIF($4, '')::date, $5, $6, $7, $8, $9)
		RETURNING `+taskColumns,
		id, req.Title, req.Description, req.DueDate, req.Priority, req.Category, expenseOf(req), sess.UserID, companyID))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	utils.LogEventAction("Task created", id, sess.UserID)
	return &task, nil
}

func (s *TaskService) Get(ctx context.Context, sess *models.Session, taskID string) (*models.Task, error) {
	if _, err := uuid.Parse(taskID); err != nil {
		return nil, ErrNotFound
	}
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if !sess.IsMember(task.CompanyID) {
		return nil, ErrNotMember
	}
	return &task, nil
}

// canEditTask: the creator, or an owner/admin of the task's company.
func canEditTask(sess *models.Session, t models.Task) bool {
	return t.UserID == sess.UserID || models.CanManage(sess.RoleIn(t.CompanyID))
}

func (s *TaskService) Update(ctx context.Context, sess *models.Session, taskID string, req models.TaskRequest) (*models.Task, error) {
	current, err := s.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}
	if !canEditTask(sess, *current) {
		return nil, ErrForbidden
	}
	if err := validateTaskRequest(&req); err != nil {
		return nil, err
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, due_date = NULLIF($3, '')::date, priority = $4,
		    category = $5, expense = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+taskColumns,
		req.Title, req.Description, req.DueDate, req.Priority, req.Category, expenseOf(req), taskID))
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	utils.LogEventAction("Task updated", taskID, sess.UserID)
	return &task, nil
}

// SetCompleted sets completion, or flips it when completed is nil. Any
// company member may complete a task.
func (s *TaskService) SetCompleted(ctx context.Context, sess *models.Session, taskID string, completed *bool) (*models.Task, error) {
	current, err := s.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}
	value := !current.Completed
	if completed != nil {
		value = *completed
	}
	return s.setFlag(ctx, sess, taskID, "completed", value)
}

// Dismiss hides an overdue task from reminders and overdue counts.
func (s *TaskService) Dismiss(ctx context.Context, sess *models.Session, taskID string) (*models.Task, error) {
	if _, err := s.Get(ctx, sess, taskID); err != nil {
		return nil, err
	}
	return s.setFlag(ctx, sess, taskID, "dismissed", true)
}

func (s *TaskService) setFlag(ctx context.Context, sess *models.Session, taskID, column string, value bool) (*models.Task, error) {
	var query string
	switch column {
	case "completed":
		query = `UPDATE tasks SET completed = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + taskColumns
	case "dismissed":
		query = `UPDATE tasks SET dismissed = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + taskColumns
	default:
		return nil, fmt.Errorf("unknown task flag %q", column)
	}
	task, err := scanTask(s.db.QueryRowContext(ctx, query, value, taskID))
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", column, err)
	}
	utils.LogEventAction("Task "+column, taskID, sess.UserID)
	return &task, nil
}

func (s *TaskService) Delete(ctx context.Context, sess *models.Session, taskID string) (*models.Task, error) {
	task, err := s.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}
	if !canEditTask(sess, *task) {
		return nil, ErrForbidden
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}
	utils.LogEventAction("Task deleted", taskID, sess.UserID)
	return task, nil
}

func (s *TaskService) ListForCompany(ctx context.Context, sess *models.Session, companyID string) ([]models.Task, error) {
	if !sess.IsMember(companyID) {
		return nil, ErrNotMember
	}
	return s.query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE company_id = $1
		ORDER BY due_date ASC NULLS LAST, created_at ASC
	`, companyID)
}

func (s *TaskService) ListOwned(ctx context.Context, userID string) ([]models.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at ASC`, userID)
}

func (s *TaskService) query(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ToTaskViews adds the derived overdue flag relative to today (YYYY-MM-DD).
func ToTaskViews(tasks []models.Task, today string) []models.TaskView {
	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, models.TaskView{Task: t, IsOverdue: t.IsOverdue(today)})
	}
	return views
}
