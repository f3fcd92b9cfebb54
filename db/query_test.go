package db

import (
	"strings"
	"testing"
)

func testQuery() ReadingQuery {
	return ReadingQuery{
		DateFrom: "2025-01-01",
		DateTo:   "2025-06-15",
		Page:     1,
		PageSize: 30,
		Sort:     SortDate,
		Dir:      SortDesc,
	}
}

func TestBuildRangeSQL(t *testing.T) {
	q := testQuery()
	countSQL, dataSQL, countArgs, dataArgs := buildRangeSQL(q)

	if !strings.Contains(countSQL, "COUNT(*)") || !strings.Contains(countSQL, "deleted_at IS NULL") {
		t.Errorf("count SQL malformed: %s", countSQL)
	}
	if len(countArgs) != 2 {
		t.Errorf("countArgs = %v, want [from, to]", countArgs)
	}
	if !strings.Contains(dataSQL, "ORDER BY obs_date DESC") {
		t.Errorf("data SQL missing order clause: %s", dataSQL)
	}
	if !strings.Contains(dataSQL, "LIMIT $3 OFFSET $4") {
		t.Errorf("data SQL missing limit/offset: %s", dataSQL)
	}
	if len(dataArgs) != 4 || dataArgs[2] != 30 || dataArgs[3] != 0 {
		t.Errorf("dataArgs = %v, want [from, to, 30, 0]", dataArgs)
	}
}

func TestBuildRangeSQL_PointFilterAndOffset(t *testing.T) {
	q := testQuery()
	point := 2
	q.Point = &point
	q.Page = 3
	q.PageSize = 10

	countSQL, dataSQL, countArgs, dataArgs := buildRangeSQL(q)

	if !strings.Contains(countSQL, "point = $3") {
		t.Errorf("count SQL missing point filter: %s", countSQL)
	}
	if len(countArgs) != 3 || countArgs[2] != 2 {
		t.Errorf("countArgs = %v, want point appended", countArgs)
	}
	if !strings.Contains(dataSQL, "LIMIT $4 OFFSET $5") {
		t.Errorf("data SQL positions wrong with point filter: %s", dataSQL)
	}
	if dataArgs[3] != 10 || dataArgs[4] != 20 {
		t.Errorf("dataArgs = %v, want limit 10 offset 20", dataArgs)
	}
}

func TestBuildRangeSQL_SortColumns(t *testing.T) {
	tests := []struct {
		sort SortField
		want string
	}{
		{SortDate, "ORDER BY obs_date"},
		{SortTime, "ORDER BY obs_time"},
		{SortPoint, "ORDER BY point"},
		{SortCreatedAt, "ORDER BY created_at"},
		{SortUpdatedAt, "ORDER BY updated_at"},
	}
	for _, tt := range tests {
		q := testQuery()
		q.Sort = tt.sort
		q.Dir = SortAsc
		_, dataSQL, _, _ := buildRangeSQL(q)
		if !strings.Contains(dataSQL, tt.want+" ASC") {
			t.Errorf("sort %v: SQL %q missing %q", tt.sort, dataSQL, tt.want)
		}
	}
}

func TestBuildBucketSQL(t *testing.T) {
	q := testQuery()
	countSQL, dataSQL, countArgs, dataArgs := buildBucketSQL(q)

	// count must run over the grouped relation, not the base table
	if !strings.Contains(countSQL, "GROUP BY obs_date") || !strings.Contains(countSQL, "AS buckets") {
		t.Errorf("count SQL does not count buckets: %s", countSQL)
	}
	if len(countArgs) != 2 {
		t.Errorf("countArgs = %v, want [from, to]", countArgs)
	}

	if !strings.Contains(dataSQL, "AVG(air_temperature)") || !strings.Contains(dataSQL, "AVG(co2)") {
		t.Errorf("data SQL missing channel averages: %s", dataSQL)
	}
	if !strings.Contains(dataSQL, "GROUP BY obs_date, time_group, point") {
		t.Errorf("data SQL grouping wrong: %s", dataSQL)
	}
	// secondary order on the bucket column with the same direction
	if !strings.Contains(dataSQL, "ORDER BY obs_date DESC, time_group DESC") {
		t.Errorf("data SQL ordering wrong: %s", dataSQL)
	}
	if !strings.Contains(dataSQL, "LIMIT $3 OFFSET $4") {
		t.Errorf("data SQL missing limit/offset: %s", dataSQL)
	}
	if len(dataArgs) != 4 {
		t.Errorf("dataArgs = %v, want 4 args", dataArgs)
	}
}

func TestBuildBucketSQL_BucketExpression(t *testing.T) {
	_, dataSQL, _, _ := buildBucketSQL(testQuery())

	// minute-of-hour floored to its lower multiple of five via integer division
	if !strings.Contains(dataSQL, "(extract(minute from obs_time::time)::int / 5) * 5") {
		t.Errorf("bucket expression missing minute flooring: %s", dataSQL)
	}
	if !strings.Contains(dataSQL, "'HH24:MI:SS'") {
		t.Errorf("bucket label not rendered as HH:MM:SS: %s", dataSQL)
	}
}

func TestBuildBucketSQL_SortByBucket(t *testing.T) {
	q := testQuery()
	q.Sort = SortTimeGroup
	q.Dir = SortAsc
	_, dataSQL, _, _ := buildBucketSQL(q)

	if !strings.Contains(dataSQL, "ORDER BY time_group ASC LIMIT") {
		t.Errorf("bucket sort should not duplicate the bucket column: %s", dataSQL)
	}
}

func TestBuildBucketSQL_PointFilter(t *testing.T) {
	q := testQuery()
	point := 5
	q.Point = &point
	countSQL, dataSQL, _, dataArgs := buildBucketSQL(q)

	if !strings.Contains(countSQL, "point = $3") || !strings.Contains(dataSQL, "point = $3") {
		t.Error("point filter must apply to both phases")
	}
	if !strings.Contains(dataSQL, "LIMIT $4 OFFSET $5") {
		t.Errorf("limit/offset positions wrong with point filter: %s", dataSQL)
	}
	if len(dataArgs) != 5 {
		t.Errorf("dataArgs = %v, want 5 args", dataArgs)
	}
}
