package classroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const (
	courseColumns   = `id, name, description, instructor_id, topics, discussion, created_at`
	topicColumns    = `id, course_id, name, description, core_resources, doubt, resource_dump, created_at`
	testColumns     = `id, topic_id, name, questions, created_at`
	commentColumns  = `id, user_id, COALESCE(topic_id, ''), course_id, text, likes, reply, created_at`
	progressColumns = `id, user_id, course_id, topic_status, created_at`
)

// PostgresStore is a PostgreSQL-backed Store. List fields live in JSONB
// columns so each push, pull and like is a single UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed classroom store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateCourse(ctx context.Context, c Course) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Topics = nonNil(c.Topics)
	c.Discussion = nonNil(c.Discussion)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO courses (id, name, description, instructor_id, topics, discussion, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7)`,
		c.ID, c.Name, c.Description, c.Instructor, mustJSON(c.Topics), mustJSON(c.Discussion), c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetCourse(ctx context.Context, id string) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanCourse(s.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "course", id)
	}
	return c, nil
}

func (s *PostgresStore) GetCourses(ctx context.Context, ids []string) ([]Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	courses, err := collect(rows, scanCourse)
	if err != nil {
		return nil, err
	}
	return orderByID(ids, courses, func(c Course) string { return c.ID }), nil
}

func (s *PostgresStore) ListCoursesByInstructor(ctx context.Context, userID string) ([]Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE instructor_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	return collect(rows, scanCourse)
}

func (s *PostgresStore) UpdateCourse(ctx context.Context, id string, name, description *string) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanCourse(s.pool.QueryRow(ctx,
		`UPDATE courses
		 SET name = COALESCE($2, name), description = COALESCE($3, description)
		 WHERE id = $1
		 RETURNING `+courseColumns,
		id, name, description,
	))
	if err != nil {
		return nil, notFound(err, "course", id)
	}
	return c, nil
}

func (s *PostgresStore) PushCourseTopic(ctx context.Context, courseID, topicID string) error {
	_, err := s.pushString(ctx, "courses", "topics", courseID, topicID)
	return err
}

func (s *PostgresStore) PullCourseTopic(ctx context.Context, courseID, topicID string) error {
	_, err := s.pullString(ctx, "courses", "topics", courseID, topicID)
	return err
}

func (s *PostgresStore) PushDiscussion(ctx context.Context, courseID, commentID string) ([]string, error) {
	return s.pushString(ctx, "courses", "discussion", courseID, commentID)
}

func (s *PostgresStore) PullDiscussion(ctx context.Context, courseID, commentID string) ([]string, error) {
	return s.pullString(ctx, "courses", "discussion", courseID, commentID)
}

func (s *PostgresStore) CreateTopic(ctx context.Context, t Topic) (*Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.CoreResources == nil {
		t.CoreResources = []ResourceItem{}
	}
	t.Doubt = nonNil(t.Doubt)
	t.ResourceDump = nonNil(t.ResourceDump)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO topics (id, course_id, name, description, core_resources, doubt, resource_dump, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7::jsonb, $8)`,
		t.ID, t.Course, t.Name, t.Description,
		mustJSON(t.CoreResources), mustJSON(t.Doubt), mustJSON(t.ResourceDump), t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetTopic(ctx context.Context, id string) (*Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTopic(s.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "topic", id)
	}
	return t, nil
}

func (s *PostgresStore) GetTopics(ctx context.Context, ids []string) ([]Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+topicColumns+` FROM topics WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	topics, err := collect(rows, scanTopic)
	if err != nil {
		return nil, err
	}
	return orderByID(ids, topics, func(t Topic) string { return t.ID }), nil
}

func (s *PostgresStore) UpdateTopic(ctx context.Context, id string, name, description *string) (*Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTopic(s.pool.QueryRow(ctx,
		`UPDATE topics
		 SET name = COALESCE($2, name), description = COALESCE($3, description)
		 WHERE id = $1
		 RETURNING `+topicColumns,
		id, name, description,
	))
	if err != nil {
		return nil, notFound(err, "topic", id)
	}
	return t, nil
}

func (s *PostgresStore) DeleteTopic(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "topics", "topic", id)
}

func (s *PostgresStore) SetCoreResources(ctx context.Context, topicID string, items []ResourceItem) ([]ResourceItem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out []ResourceItem
	err := s.pool.QueryRow(ctx,
		`UPDATE topics SET core_resources = $2::jsonb WHERE id = $1 RETURNING core_resources`,
		topicID, mustJSON(items),
	).Scan(&out)
	if err != nil {
		return nil, notFound(err, "topic", topicID)
	}
	return out, nil
}

func (s *PostgresStore) InsertCoreResource(ctx context.Context, topicID string, item ResourceItem, position int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var items []ResourceItem
	if err := tx.QueryRow(ctx,
		`SELECT core_resources FROM topics WHERE id = $1 FOR UPDATE`,
		topicID,
	).Scan(&items); err != nil {
		return notFound(err, "topic", topicID)
	}
	if position < 0 || position > len(items) {
		position = len(items)
	}
	items = slices.Insert(items, position, item)

	if _, err := tx.Exec(ctx,
		`UPDATE topics SET core_resources = $2::jsonb WHERE id = $1`,
		topicID, mustJSON(items),
	); err != nil {
		return fmt.Errorf("update core resources: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveCoreResource(ctx context.Context, topicID, resourceID string) ([]ResourceItem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out []ResourceItem
	err := s.pool.QueryRow(ctx,
		`UPDATE topics
		 SET core_resources = COALESCE((
		   SELECT jsonb_agg(e ORDER BY ord)
		   FROM jsonb_array_elements(core_resources) WITH ORDINALITY AS x(e, ord)
		   WHERE e->>'_id' <> $2
		 ), '[]'::jsonb)
		 WHERE id = $1
		 RETURNING core_resources`,
		topicID, resourceID,
	).Scan(&out)
	if err != nil {
		return nil, notFound(err, "topic", topicID)
	}
	return out, nil
}

func (s *PostgresStore) PushTopicComment(ctx context.Context, topicID string, list CommentList, commentID string) ([]string, error) {
	column, err := commentColumn(list)
	if err != nil {
		return nil, err
	}
	return s.pushString(ctx, "topics", column, topicID, commentID)
}

func (s *PostgresStore) PullTopicComment(ctx context.Context, topicID, commentID string) (*Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTopic(s.pool.QueryRow(ctx,
		`UPDATE topics
		 SET doubt = doubt - $2::text, resource_dump = resource_dump - $2::text
		 WHERE id = $1
		 RETURNING `+topicColumns,
		topicID, commentID,
	))
	if err != nil {
		return nil, notFound(err, "topic", topicID)
	}
	return t, nil
}

func (s *PostgresStore) CreateTest(ctx context.Context, t Test) (*Test, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Questions == nil {
		t.Questions = []Question{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO tests (id, topic_id, name, questions, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		t.ID, t.Topic, t.Name, mustJSON(t.Questions), t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert test: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetTest(ctx context.Context, id string) (*Test, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	t, err := scanTest(s.pool.QueryRow(ctx, `SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "test", id)
	}
	return t, nil
}

func (s *PostgresStore) DeleteTest(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tests", "test", id)
}

func (s *PostgresStore) ListTestsBefore(ctx context.Context, before time.Time) ([]Test, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+testColumns+` FROM tests WHERE created_at < $1`, before)
	if err != nil {
		return nil, fmt.Errorf("query tests: %w", err)
	}
	return collect(rows, scanTest)
}

func (s *PostgresStore) CreateComment(ctx context.Context, c Comment) (*Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Likes = nonNil(c.Likes)
	if c.Reply == nil {
		c.Reply = []Reply{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO comments (id, user_id, topic_id, course_id, text, likes, reply, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6::jsonb, $7::jsonb, $8)`,
		c.ID, c.User, c.Topic, c.Course, c.Text, mustJSON(c.Likes), mustJSON(c.Reply), c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, id string) (*Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	c, err := scanComment(s.pool.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "comment", id)
	}
	return c, nil
}

func (s *PostgresStore) GetComments(ctx context.Context, ids []string) ([]Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	comments, err := collect(rows, scanComment)
	if err != nil {
		return nil, err
	}
	return orderByID(ids, comments, func(c Comment) string { return c.ID }), nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "comments", "comment", id)
}

func (s *PostgresStore) LikeComment(ctx context.Context, id, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var likes []string
	err := s.pool.QueryRow(ctx,
		`UPDATE comments
		 SET likes = likes || to_jsonb($2::text)
		 WHERE id = $1 AND NOT (likes @> jsonb_build_array($2::text))
		 RETURNING likes`,
		id, userID,
	).Scan(&likes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.missingOr(ctx, "comments", "comment", id, ErrAlreadyLiked)
	}
	if err != nil {
		return nil, fmt.Errorf("like comment: %w", err)
	}
	return likes, nil
}

func (s *PostgresStore) UnlikeComment(ctx context.Context, id, userID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var likes []string
	err := s.pool.QueryRow(ctx,
		`UPDATE comments
		 SET likes = likes - $2::text
		 WHERE id = $1 AND likes @> jsonb_build_array($2::text)
		 RETURNING likes`,
		id, userID,
	).Scan(&likes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, s.missingOr(ctx, "comments", "comment", id, ErrNotLiked)
	}
	if err != nil {
		return nil, fmt.Errorf("unlike comment: %w", err)
	}
	return likes, nil
}

func (s *PostgresStore) AddReply(ctx context.Context, id string, r Reply) ([]Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	var reply []Reply
	err := s.pool.QueryRow(ctx,
		`UPDATE comments SET reply = reply || jsonb_build_array($2::jsonb) WHERE id = $1 RETURNING reply`,
		id, mustJSON(r),
	).Scan(&reply)
	if err != nil {
		return nil, notFound(err, "comment", id)
	}
	return reply, nil
}

func (s *PostgresStore) ListCommentsBefore(ctx context.Context, before time.Time) ([]Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+commentColumns+` FROM comments WHERE created_at < $1`, before)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	return collect(rows, scanComment)
}

func (s *PostgresStore) CreateProgress(ctx context.Context, p CourseProgress) (*CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.TopicStatus == nil {
		p.TopicStatus = map[string][]string{}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO course_progress (id, user_id, course_id, topic_status, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		p.ID, p.User, p.Course, mustJSON(p.TopicStatus), p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("insert progress: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetProgress(ctx context.Context, userID, courseID string) (*CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM course_progress WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	))
	if err != nil {
		return nil, notFound(err, "progress", userID+"/"+courseID)
	}
	return p, nil
}

func (s *PostgresStore) ListProgressByUser(ctx context.Context, userID string) ([]CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+progressColumns+` FROM course_progress WHERE user_id = $1 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return collect(rows, scanProgress)
}

func (s *PostgresStore) ListProgressByCourse(ctx context.Context, courseID string) ([]CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+progressColumns+` FROM course_progress WHERE course_id = $1 ORDER BY created_at ASC`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return collect(rows, scanProgress)
}

func (s *PostgresStore) SetResourceStatus(ctx context.Context, userID, courseID, topicID, resourceID string, done bool) (*CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `UPDATE course_progress
		 SET topic_status = jsonb_set(
		   topic_status,
		   ARRAY[$3::text],
		   CASE WHEN COALESCE(topic_status->$3::text, '[]'::jsonb) @> jsonb_build_array($4::text)
		        THEN topic_status->$3::text
		        ELSE COALESCE(topic_status->$3::text, '[]'::jsonb) || jsonb_build_array($4::text)
		   END,
		   true)
		 WHERE user_id = $1 AND course_id = $2
		 RETURNING ` + progressColumns
	if !done {
		query = `UPDATE course_progress
		 SET topic_status = CASE
		   WHEN (COALESCE(topic_status->$3::text, '[]'::jsonb) - $4::text) = '[]'::jsonb
		     THEN topic_status - $3::text
		   ELSE jsonb_set(topic_status, ARRAY[$3::text], (topic_status->$3::text) - $4::text, true)
		 END
		 WHERE user_id = $1 AND course_id = $2
		 RETURNING ` + progressColumns
	}

	p, err := scanProgress(s.pool.QueryRow(ctx, query, userID, courseID, topicID, resourceID))
	if err != nil {
		return nil, notFound(err, "progress", userID+"/"+courseID)
	}
	return p, nil
}

// pushString appends value to a JSONB string array column and returns the new array.
func (s *PostgresStore) pushString(ctx context.Context, table, column, id, value string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out []string
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = %s || to_jsonb($2::text) WHERE id = $1 RETURNING %s`, table, column, column, column),
		id, value,
	).Scan(&out)
	if err != nil {
		return nil, notFound(err, table, id)
	}
	return out, nil
}

// pullString removes every occurrence of value from a JSONB string array column.
func (s *PostgresStore) pullString(ctx context.Context, table, column, id, value string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var out []string
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET %s = %s - $2::text WHERE id = $1 RETURNING %s`, table, column, column, column),
		id, value,
	).Scan(&out)
	if err != nil {
		return nil, notFound(err, table, id)
	}
	return out, nil
}

func (s *PostgresStore) deleteByID(ctx context.Context, table, noun, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", noun, err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return nil
}

// missingOr reports ErrNotFound when the row does not exist and cause otherwise.
func (s *PostgresStore) missingOr(ctx context.Context, table, noun, id string, cause error) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table),
		id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", noun, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return cause
}

func commentColumn(list CommentList) (string, error) {
	switch list {
	case ListDoubt:
		return "doubt", nil
	case ListResourceDump:
		return "resource_dump", nil
	}
	return "", fmt.Errorf("unknown comment list %q", list)
}

func scanCourse(row pgx.Row) (*Course, error) {
	var c Course
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Instructor, &c.Topics, &c.Discussion, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanTopic(row pgx.Row) (*Topic, error) {
	var t Topic
	if err := row.Scan(&t.ID, &t.Course, &t.Name, &t.Description, &t.CoreResources, &t.Doubt, &t.ResourceDump, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	if err := row.Scan(&t.ID, &t.Topic, &t.Name, &t.Questions, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	if err := row.Scan(&c.ID, &c.User, &c.Topic, &c.Course, &c.Text, &c.Likes, &c.Reply, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanProgress(row pgx.Row) (*CourseProgress, error) {
	var p CourseProgress
	if err := row.Scan(&p.ID, &p.User, &p.Course, &p.TopicStatus, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func notFound(err error, noun, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", noun, err)
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only plain structs, slices and maps reach here.
		panic(fmt.Sprintf("marshal jsonb: %v", err))
	}
	return string(data)
}
