package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"jobchat/internal/model"
	"jobchat/internal/service"
)

// PostgresRepository executes compiled predicates as parameterized SQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// columnRef maps a condition path to a SQL expression plus any join clauses
// the expression depends on.
type columnRef struct {
	expr  string
	joins []string
	jsonb bool // cast to text for substring matching
}

// tableSpec describes how one entity collection is laid out in SQL.
type tableSpec struct {
	from       string
	selectCols string
	orderBy    string
	columns    map[string]columnRef
}

// tableSpecs is the fixed mapping from entity kinds to SQL. Condition paths
// must stay in lockstep with the schema registry's FieldSpec paths.
var tableSpecs = map[string]tableSpec{
	"jobs": {
		from: "jobs j",
		selectCols: "j.id, j.title, j.description, j.location, j.level, j.work_type, " +
			"j.salary, j.remote, j.benefits, j.skills, j.employer_id, j.posted_at",
		orderBy: "j.posted_at DESC, j.id DESC",
		columns: map[string]columnRef{
			"title":     {expr: "j.title"},
			"location":  {expr: "j.location"},
			"level":     {expr: "j.level"},
			"work_type": {expr: "j.work_type"},
			"salary":    {expr: "j.salary"},
			"remote":    {expr: "j.remote"},
			"benefits":  {expr: "j.benefits"},
			"skills":    {expr: "j.skills", jsonb: true},
			"employer.profile.company_name": {
				expr: "ep.company_name",
				joins: []string{
					"JOIN users emp ON emp.id = j.employer_id",
					"JOIN employer_profiles ep ON ep.user_id = emp.id",
				},
			},
		},
	},
	"users": {
		from:       "users u",
		selectCols: "u.id, u.full_name, u.role, u.location, u.skills, u.open_to_work, u.created_at",
		orderBy:    "u.created_at DESC, u.id DESC",
		columns: map[string]columnRef{
			"full_name":    {expr: "u.full_name"},
			"role":         {expr: "u.role"},
			"location":     {expr: "u.location"},
			"skills":       {expr: "u.skills"},
			"open_to_work": {expr: "u.open_to_work"},
		},
	},
	"subscription_plans": {
		from:       "subscription_plans sp",
		selectCols: "sp.id, sp.name, sp.description, sp.price, sp.duration_days, sp.active",
		orderBy:    "sp.price ASC, sp.id ASC",
		columns: map[string]columnRef{
			"name":   {expr: "sp.name"},
			"price":  {expr: "sp.price"},
			"active": {expr: "sp.active"},
		},
	},
	"companies": {
		from:       "companies c",
		selectCols: "c.id, c.name, c.industry, c.location, c.website, c.employee_count, c.description",
		orderBy:    "c.name ASC, c.id ASC",
		columns: map[string]columnRef{
			"name":           {expr: "c.name"},
			"industry":       {expr: "c.industry"},
			"location":       {expr: "c.location"},
			"employee_count": {expr: "c.employee_count"},
			"website":        {expr: "c.website"},
		},
	},
	"employer_reviews": {
		from: "employer_reviews r JOIN companies c ON c.id = r.company_id",
		selectCols: "r.id, r.company_id, c.name AS company_name, r.reviewer_id, " +
			"r.rating, r.comment, r.created_at",
		orderBy: "r.created_at DESC, r.id DESC",
		columns: map[string]columnRef{
			"company.name": {expr: "c.name"},
			"rating":       {expr: "r.rating"},
			"comment":      {expr: "r.comment"},
		},
	},
	"applications": {
		from: "applications a JOIN jobs j ON j.id = a.job_id " +
			"JOIN users u ON u.id = a.applicant_id",
		selectCols: "a.id, a.job_id, j.title AS job_title, a.applicant_id, " +
			"u.full_name AS applicant_name, a.status, a.expected_salary, a.cover_letter, a.applied_at",
		orderBy: "a.applied_at DESC, a.id DESC",
		columns: map[string]columnRef{
			"job.title":           {expr: "j.title"},
			"status":              {expr: "a.status"},
			"applicant.full_name": {expr: "u.full_name"},
			"expected_salary":     {expr: "a.expected_salary"},
		},
	},
}

// Ensure PostgresRepository implements the search collaborator contract.
var _ service.Searcher = (*PostgresRepository)(nil)

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement
	// does not exist" errors behind poolers
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Search executes a compiled predicate against one entity collection.
func (r *PostgresRepository) Search(ctx context.Context, entityKind string, pred model.Predicate, page model.Page) (*model.PagedResult, error) {
	countQuery, selectQuery, args, err := buildSearchQuery(entityKind, pred, page)
	if err != nil {
		return nil, err
	}

	// args carries limit and offset last; the count query uses the prefix.
	countArgs := args[:len(args)-2]

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}

	items, err := r.fetchItems(ctx, entityKind, selectQuery, args)
	if err != nil {
		return nil, err
	}

	return &model.PagedResult{
		Items:      items,
		PageNumber: page.Number,
		PageSize:   page.Size,
		TotalCount: total,
	}, nil
}

// buildSearchQuery translates a predicate into a count query and a select
// query plus bind arguments. Conditions become parameterized fragments, never
// interpolated values; the last two arguments are always limit and offset.
func buildSearchQuery(entityKind string, pred model.Predicate, page model.Page) (string, string, []interface{}, error) {
	spec, ok := tableSpecs[entityKind]
	if !ok {
		return "", "", nil, fmt.Errorf("no table mapping for entity kind %q", entityKind)
	}

	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	var joins []string
	joinSeen := map[string]bool{}

	for _, cond := range pred.Conditions {
		col, ok := spec.columns[cond.Path]
		if !ok {
			return "", "", nil, fmt.Errorf("no column mapping for path %q on %q", cond.Path, entityKind)
		}

		for _, join := range col.joins {
			if !joinSeen[join] {
				joinSeen[join] = true
				joins = append(joins, join)
			}
		}

		expr := col.expr
		if col.jsonb {
			expr += "::text"
		}

		switch cond.Kind {
		case model.MatchExact:
			if _, isText := cond.Value.(string); isText {
				whereClauses = append(whereClauses, fmt.Sprintf("LOWER(%s) = LOWER($%d)", expr, argIndex))
			} else {
				whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", expr, argIndex))
			}
			args = append(args, cond.Value)
			argIndex++

		case model.MatchSubstring:
			whereClauses = append(whereClauses, fmt.Sprintf("%s ILIKE $%d", expr, argIndex))
			args = append(args, fmt.Sprintf("%%%v%%", cond.Value))
			argIndex++

		case model.MatchRangeMin:
			whereClauses = append(whereClauses, fmt.Sprintf("%s >= $%d", expr, argIndex))
			args = append(args, cond.Value)
			argIndex++

		case model.MatchRangeMax:
			whereClauses = append(whereClauses, fmt.Sprintf("%s <= $%d", expr, argIndex))
			args = append(args, cond.Value)
			argIndex++

		case model.MatchPresence:
			want, _ := cond.Value.(bool)
			if want {
				whereClauses = append(whereClauses, fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", expr, expr))
			} else {
				whereClauses = append(whereClauses, fmt.Sprintf("(%s IS NULL OR %s = '')", expr, expr))
			}

		case model.MatchBoolEquals:
			whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", expr, argIndex))
			args = append(args, cond.Value)
			argIndex++

		default:
			return "", "", nil, fmt.Errorf("unsupported match kind %q", cond.Kind)
		}
	}

	from := spec.from
	if len(joins) > 0 {
		from += " " + strings.Join(joins, " ")
	}
	whereClause := strings.Join(whereClauses, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", from, whereClause)
	selectQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		spec.selectCols, from, whereClause, spec.orderBy, argIndex, argIndex+1,
	)

	offset := (page.Number - 1) * page.Size
	args = append(args, page.Size, offset)

	return countQuery, selectQuery, args, nil
}

// fetchItems scans the select query into the entity type for entityKind.
func (r *PostgresRepository) fetchItems(ctx context.Context, entityKind, query string, args []interface{}) ([]any, error) {
	switch entityKind {
	case "jobs":
		var rows []model.Job
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to fetch jobs: %w", err)
		}
		return toAny(rows), nil
	case "users":
		var rows []model.User
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to fetch users: %w", err)
		}
		return toAny(rows), nil
	case "subscription_plans":
		var rows []model.SubscriptionPlan
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to fetch subscription plans: %w", err)
		}
		return toAny(rows), nil
	case "companies":
		var rows []model.Company
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to fetch companies: %w", err)
		}
		return toAny(rows), nil
	case "employer_reviews":
		var rows []model.EmployerReview
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to fetch employer reviews: %w", err)
		}
		return toAny(rows), nil
	case "applications":
		var rows []model.Application
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("failed to fetch applications: %w", err)
		}
		return toAny(rows), nil
	default:
		return nil, fmt.Errorf("no scanner for entity kind %q", entityKind)
	}
}

func toAny[T any](rows []T) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

// UpdateEmbedding updates the embedding vector for a job.
func (r *PostgresRepository) UpdateEmbedding(ctx context.Context, jobID int64, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	query := `UPDATE jobs SET embedding = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, vec, jobID); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	return nil
}

// BatchUpdateEmbeddings updates embeddings for multiple jobs in one
// transaction and reports per-item failures.
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE jobs SET embedding = $1 WHERE id = $2`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		vec := pgvector.NewVector(item.Embedding)
		if _, err := stmt.ExecContext(ctx, vec, item.JobID); err != nil {
			errors = append(errors, fmt.Sprintf("job_id %d: %v", item.JobID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}

// LogTurn records a completed search turn.
func (r *PostgresRepository) LogTurn(ctx context.Context, entry service.TurnLogEntry) error {
	query := `
		INSERT INTO chat_logs (session_id, message, intent, confidence, result_count, took_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.SessionID, entry.Message, string(entry.Intent),
		entry.Confidence, entry.ResultCount, entry.TookMs)
	if err != nil {
		return fmt.Errorf("failed to log turn: %w", err)
	}
	return nil
}
