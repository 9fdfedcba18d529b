package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/iWorld-y/trend_compass/internal/config"
	"github.com/iWorld-y/trend_compass/internal/model"
)

var (
	// ErrNotFound 指定记录不存在
	ErrNotFound = errors.New("storage: record not found")
	// ErrDuplicate 竞品频道已被跟踪
	ErrDuplicate = errors.New("storage: competitor already tracked")
)

// uniqueViolation Postgres 唯一约束冲突的错误码
const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type Storage struct {
	db *sql.DB
}

func NewStorage(cfg config.DBConfig) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS content_strategies (
			id SERIAL PRIMARY KEY,
			target_audience TEXT NOT NULL,
			topic TEXT NOT NULL,
			goals TEXT,
			plan JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS competitors (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			platform TEXT NOT NULL,
			channel_id TEXT NOT NULL UNIQUE,
			topic_analysis JSONB,
			last_fetched TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS competitor_posts (
			id SERIAL PRIMARY KEY,
			competitor_id INTEGER REFERENCES competitors(id) ON DELETE CASCADE,
			post_id TEXT,
			title TEXT,
			link TEXT,
			published_at TIMESTAMP,
			format TEXT
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %s: %w", query, err)
		}
	}

	return nil
}

// SaveStrategy 保存生成的内容策略，返回分配的 id
func (s *Storage) SaveStrategy(ctx context.Context, strategy *model.ContentStrategy) (int, error) {
	planJSON, err := json.Marshal(strategy.GeneratedPlan)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal plan: %w", err)
	}

	var id int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO content_strategies (target_audience, topic, goals, plan)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		strategy.TargetAudience, strategy.Topic, strategy.Goals, planJSON).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert content strategy: %w", err)
	}

	return id, nil
}

// ListStrategies 按创建时间倒序返回全部策略
func (s *Storage) ListStrategies(ctx context.Context) ([]*model.ContentStrategy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_audience, topic, goals, plan, created_at
		FROM content_strategies
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query content strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*model.ContentStrategy
	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strategy)
	}
	return strategies, rows.Err()
}

// GetStrategy 按 id 查询单条策略，不存在返回 ErrNotFound
func (s *Storage) GetStrategy(ctx context.Context, id int) (*model.ContentStrategy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, target_audience, topic, goals, plan, created_at
		FROM content_strategies
		WHERE id = $1`, id)

	strategy, err := scanStrategy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return strategy, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*model.ContentStrategy, error) {
	var (
		strategy model.ContentStrategy
		planJSON []byte
	)
	err := row.Scan(&strategy.ID, &strategy.TargetAudience, &strategy.Topic,
		&strategy.Goals, &planJSON, &strategy.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(planJSON, &strategy.GeneratedPlan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &strategy, nil
}

// SaveCompetitor 保存竞品及其近期贴文。channel_id 已存在时返回 ErrDuplicate，
// 并发插入同一频道时由唯一约束兜底。
func (s *Storage) SaveCompetitor(ctx context.Context, competitor *model.Competitor) (int, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM competitors WHERE channel_id = $1)`,
		competitor.ChannelID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("failed to check competitor existence: %w", err)
	}
	if exists {
		return 0, ErrDuplicate
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	analysisJSON, err := json.Marshal(competitor.Analysis)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal topic analysis: %w", err)
	}

	var id int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO competitors (name, platform, channel_id, topic_analysis, last_fetched)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		competitor.Name, competitor.Platform, competitor.ChannelID,
		analysisJSON, competitor.LastFetched).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert competitor: %w", err)
	}

	for _, post := range competitor.RecentPosts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO competitor_posts (competitor_id, post_id, title, link, published_at, format)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, post.PostID, post.Title, post.Link, post.PublishedAt, post.Format)
		if err != nil {
			return 0, fmt.Errorf("failed to insert competitor post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListCompetitors 返回全部跟踪中的竞品及其近期贴文
func (s *Storage) ListCompetitors(ctx context.Context) ([]*model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, platform, channel_id, topic_analysis, last_fetched, created_at
		FROM competitors
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitors: %w", err)
	}
	defer rows.Close()

	var competitors []*model.Competitor
	for rows.Next() {
		var (
			competitor   model.Competitor
			analysisJSON []byte
			lastFetched  sql.NullTime
		)
		err := rows.Scan(&competitor.ID, &competitor.Name, &competitor.Platform,
			&competitor.ChannelID, &analysisJSON, &lastFetched, &competitor.CreatedAt)
		if err != nil {
			return nil, err
		}
		if lastFetched.Valid {
			competitor.LastFetched = lastFetched.Time
		}
		if len(analysisJSON) > 0 {
			if err := json.Unmarshal(analysisJSON, &competitor.Analysis); err != nil {
				return nil, fmt.Errorf("failed to unmarshal topic analysis: %w", err)
			}
		}
		competitors = append(competitors, &competitor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, competitor := range competitors {
		posts, err := s.listCompetitorPosts(ctx, competitor.ID)
		if err != nil {
			return nil, err
		}
		competitor.RecentPosts = posts
	}

	return competitors, nil
}

func (s *Storage) listCompetitorPosts(ctx context.Context, competitorID int) ([]model.RecentPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT post_id, title, link, published_at, format
		FROM competitor_posts
		WHERE competitor_id = $1
		ORDER BY published_at DESC`, competitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query competitor posts: %w", err)
	}
	defer rows.Close()

	var posts []model.RecentPost
	for rows.Next() {
		var (
			post        model.RecentPost
			publishedAt sql.NullTime
		)
		if err := rows.Scan(&post.PostID, &post.Title, &post.Link, &publishedAt, &post.Format); err != nil {
			return nil, err
		}
		if publishedAt.Valid {
			post.PublishedAt = publishedAt.Time
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}
