// Package pgstore is the PostgreSQL implementation of analytics.Store.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/seuros/studybuddy/internal/analytics"
)

// Store reads and writes the analytics_events and applications tables. The pool
// is owned by the caller.
type Store struct {
	db *sql.DB
}

var _ analytics.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open verifies the connection.
func (s *Store) Open(ctx context.Context) error {
	if s.db == nil {
		return errors.New("pgstore: no database connection")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error { return nil }

func (s *Store) AppendEvent(ctx context.Context, e analytics.Event) error {
	var data any
	if len(e.Data) > 0 {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("encode event data: %w", err)
		}
		data = string(raw)
	}
	var route any
	if e.Route != "" {
		route = e.Route
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (
			id, event_type, session_id, route, data,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Type, e.SessionID, route, data,
		e.UTM.Source, e.UTM.Medium, e.UTM.Campaign, e.UTM.Term, e.UTM.Content, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Store) AppendApplication(ctx context.Context, a analytics.Application) error {
	var examScore any
	if a.ExamScore != "" {
		examScore = a.ExamScore
	}
	var level any
	if a.Level != "" {
		level = a.Level
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, session_id, grade, goals, subjects, level, exam_score, self_assessment,
			email, telegram, utm_source, utm_medium, utm_campaign, utm_term, utm_content, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.SessionID, a.Grade, pq.Array(a.Goals), pq.Array(a.Subjects), level, examScore, a.SelfAssessment,
		a.Email, a.Telegram, a.UTM.Source, a.UTM.Medium, a.UTM.Campaign, a.UTM.Term, a.UTM.Content, a.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

const countsQuery = `
	SELECT
		COUNT(*) FILTER (WHERE event_type = 'page_view'),
		COUNT(DISTINCT session_id) FILTER (WHERE event_type = 'page_view'),
		COUNT(*) FILTER (WHERE event_type = 'cta_click'),
		COUNT(*) FILTER (WHERE event_type = 'form_start'),
		(SELECT COUNT(*) FROM applications)
	FROM analytics_events`

func (s *Store) counts(ctx context.Context) (analytics.Counts, error) {
	var c analytics.Counts
	err := s.db.QueryRowContext(ctx, countsQuery).Scan(
		&c.TotalVisits, &c.UniqueVisitors, &c.CTAClicks, &c.FormStarts, &c.Applications,
	)
	if err != nil {
		return analytics.Counts{}, fmt.Errorf("query counts: %w", err)
	}
	return c, nil
}

func (s *Store) QueryStats(ctx context.Context) (analytics.Stats, error) {
	c, err := s.counts(ctx)
	if err != nil {
		return analytics.Stats{}, err
	}
	return analytics.BuildStats(c), nil
}

func (s *Store) QueryFunnel(ctx context.Context) ([]analytics.FunnelStage, error) {
	c, err := s.counts(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.BuildFunnel(c), nil
}

func (s *Store) QueryUTMStats(ctx context.Context) ([]analytics.UTMStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			COALESCE(utm_source, $1) AS source,
			COALESCE(utm_campaign, '') AS campaign,
			COUNT(*) FILTER (WHERE event_type = 'page_view') AS clicks,
			COUNT(*) FILTER (WHERE event_type = 'form_submit') AS submissions
		FROM analytics_events
		WHERE event_type IN ('page_view', 'form_submit')
		GROUP BY 1, 2`, analytics.DirectSource)
	if err != nil {
		return nil, fmt.Errorf("query utm stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := make([]analytics.UTMStat, 0)
	for rows.Next() {
		var source, campaign string
		var clicks, submissions int
		if err := rows.Scan(&source, &campaign, &clicks, &submissions); err != nil {
			return nil, fmt.Errorf("scan utm stats: %w", err)
		}
		stats = append(stats, analytics.NewUTMStat(source, campaign, clicks, submissions))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	analytics.SortUTMStats(stats)
	return stats, nil
}

func (s *Store) QueryRecentApplications(ctx context.Context, limit int) ([]analytics.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, session_id, grade, goals, subjects,
			COALESCE(level, ''), COALESCE(exam_score, ''), COALESCE(self_assessment, 0),
			email, telegram, utm_source, utm_medium, utm_campaign, utm_term, utm_content, created_at
		FROM applications
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	apps := make([]analytics.Application, 0)
	for rows.Next() {
		var a analytics.Application
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.Grade, pq.Array(&a.Goals), pq.Array(&a.Subjects),
			&a.Level, &a.ExamScore, &a.SelfAssessment,
			&a.Email, &a.Telegram,
			&a.UTM.Source, &a.UTM.Medium, &a.UTM.Campaign, &a.UTM.Term, &a.UTM.Content,
			&a.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// QueryTimeSeries reads the daily_event_counts view, so today's figure lags by at
// most one refresh interval.
func (s *Store) QueryTimeSeries(ctx context.Context, eventType string, days int) ([]analytics.TimePoint, error) {
	if days < 1 {
		days = 1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(d, 'YYYY-MM-DD'), COALESCE(v.events, 0)
		FROM generate_series(CURRENT_DATE - ($2::int - 1), CURRENT_DATE, INTERVAL '1 day') AS d
		LEFT JOIN daily_event_counts v ON v.day = d::date AND v.event_type = $1
		ORDER BY d`, eventType, days)
	if err != nil {
		return nil, fmt.Errorf("query time series: %w", err)
	}
	defer func() { _ = rows.Close() }()

	points := make([]analytics.TimePoint, 0, days)
	for rows.Next() {
		var p analytics.TimePoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, fmt.Errorf("scan time series: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
