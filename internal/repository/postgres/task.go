package postgres

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
	"taskhub/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskRow adds the array columns domain.Task leaves untagged.
type taskRow struct {
	domain.Task
	Requirements pq.StringArray `db:"requirements"`
	Skills       pq.StringArray `db:"skills"`
}

func toTaskRow(t *domain.Task) *taskRow {
	return &taskRow{
		Task:         *t,
		Requirements: stringArray(t.Requirements),
		Skills:       stringArray(t.Skills),
	}
}

// stringArray keeps NOT NULL array columns at '{}' rather than NULL.
func stringArray(list []string) pq.StringArray {
	if list == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(list)
}

func (r *taskRow) toDomain() *domain.Task {
	t := r.Task
	t.Requirements = []string(r.Requirements)
	t.Skills = []string(r.Skills)
	if t.Requirements == nil {
		t.Requirements = []string{}
	}
	if t.Skills == nil {
		t.Skills = []string{}
	}
	return &t
}

const insertTask = `
	INSERT INTO tasks (
		id, creator_id, title, description, category, budget, status,
		applications_count, deadline, created_at, updated_at, completed_at,
		requirements, skills
	) VALUES (
		:id, :creator_id, :title, :description, :category, :budget, :status,
		:applications_count, :deadline, :created_at, :updated_at, :completed_at,
		:requirements, :skills
	)
`

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	_, err := r.db.NamedExecContext(ctx, insertTask, toTaskRow(task))
	return errors.Wrap(err, "failed to create task")
}

func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, t := range tasks {
		if _, err := tx.NamedExecContext(ctx, insertTask, toTaskRow(t)); err != nil {
			return errors.Wrap(err, "failed to insert task")
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit tasks")
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks SET
			title = :title,
			description = :description,
			category = :category,
			budget = :budget,
			status = :status,
			applications_count = :applications_count,
			deadline = :deadline,
			updated_at = :updated_at,
			completed_at = :completed_at,
			requirements = :requirements,
			skills = :skills
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, toTaskRow(task))
	if err != nil {
		return errors.Wrap(err, "failed to update task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM tasks WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTaskNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find task")
	}
	return row.toDomain(), nil
}

func (r *TaskRepository) FindByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	var rows []taskRow
	query := `SELECT * FROM tasks WHERE creator_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, creatorID); err != nil {
		return nil, errors.Wrap(err, "failed to find tasks by creator")
	}
	out := make([]*domain.Task, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

func (r *TaskRepository) DeleteByCreator(ctx context.Context, creatorID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE creator_id = $1`, creatorID)
	return errors.Wrap(err, "failed to delete tasks")
}
