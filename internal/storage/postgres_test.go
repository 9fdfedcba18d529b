package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/trend_compass/internal/model"
)

// fakeRow 模拟单行扫描，值顺序与策略查询列一致
type fakeRow struct {
	vals []any
}

func (f *fakeRow) Scan(dest ...any) error {
	if len(dest) != len(f.vals) {
		return fmt.Errorf("expected %d columns, got %d", len(f.vals), len(dest))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *int:
			*target = f.vals[i].(int)
		case *string:
			*target = f.vals[i].(string)
		case *[]byte:
			*target = f.vals[i].([]byte)
		case *time.Time:
			*target = f.vals[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

func TestScanStrategyPlanRoundTrip(t *testing.T) {
	plan := &model.GeneratedPlan{
		BlogTitle:        "10 Skincare Secrets Dermatologists Swear By",
		SuggestedFormats: []string{"IG Reel", "Blog Post", "YouTube Short"},
		PostFrequency:    "3 posts/week",
		Calendar: []model.CalendarEntry{
			{Day: 1, Title: "Morning routine basics", Format: "IG Reel", Platform: "Instagram", PostTime: "9-11 AM EST"},
			{Day: 2, Title: "Ingredient deep dive: retinol", Format: "Blog Post", Platform: "Blog", PostTime: "8 AM EST"},
			{Day: 3, Title: "SPF myths debunked", Format: "YouTube Short", Platform: "YouTube", PostTime: "6 PM EST"},
		},
	}

	// 与 SaveStrategy 的落库编码保持一致
	planJSON, err := json.Marshal(plan)
	require.NoError(t, err)

	createdAt := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	row := &fakeRow{vals: []any{
		7, "Gen Z beauty enthusiasts", "skincare", "grow engagement", planJSON, createdAt,
	}}

	strategy, err := scanStrategy(row)
	require.NoError(t, err)

	assert.Equal(t, 7, strategy.ID)
	assert.Equal(t, "skincare", strategy.Topic)
	assert.Equal(t, createdAt, strategy.CreatedAt)
	assert.Equal(t, plan, strategy.GeneratedPlan, "计划经 JSONB 往返后应逐字段一致")
}

func TestScanStrategyMalformedPlan(t *testing.T) {
	row := &fakeRow{vals: []any{
		1, "audience", "topic", "goals", []byte("{not json"), time.Now(),
	}}

	_, err := scanStrategy(row)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("connection reset")))
}
