package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder()
	require.NotNil(t, wb)
	assert.Equal(t, 1, wb.NextArgIndex())

	whereClause, args := wb.Build()
	assert.Empty(t, whereClause)
	assert.Nil(t, args)
}

func TestWhereBuilder_Add(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("action", "invitation_create")
	wb.Add("severity", "")
	wb.Add("resource", "invitation")

	whereClause, args := wb.Build()
	assert.Equal(t, " WHERE action = $1 AND resource = $2", whereClause)
	assert.Equal(t, []any{"invitation_create", "invitation"}, args)
	assert.Equal(t, 3, wb.NextArgIndex())
}

func TestWhereBuilder_AddTimestampRange(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end time.Time
		wantClause string
		wantArgs   []any
	}{
		{"both bounds", start, end, " WHERE created_at >= $1 AND created_at < $2", []any{start, end}},
		{"start only", start, time.Time{}, " WHERE created_at >= $1", []any{start}},
		{"end only", time.Time{}, end, " WHERE created_at < $1", []any{end}},
		{"no bounds", time.Time{}, time.Time{}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder()
			wb.AddTimestampRange("created_at", tt.start, tt.end)
			whereClause, args := wb.Build()
			assert.Equal(t, tt.wantClause, whereClause)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestWhereBuilder_ComplexQuery(t *testing.T) {
	wb := NewWhereBuilder()
	wb.Add("resource", "view")
	wb.AddTimestampRange("created_at", time.Unix(0, 0), time.Time{})

	whereClause, args := wb.Build()
	query := "SELECT id FROM audit_log" + whereClause + " LIMIT $" + "3"

	assert.Equal(t, "SELECT id FROM audit_log WHERE resource = $1 AND created_at >= $2 LIMIT $3", query)
	assert.Len(t, args, 2)
	assert.Equal(t, 3, wb.NextArgIndex())
}

// ============================================================================
// Conversion Tests
// ============================================================================

func TestToPgText(t *testing.T) {
	assert.False(t, ToPgText("").Valid)
	assert.False(t, ToPgText("   ").Valid)

	v := ToPgText("  hello ")
	assert.True(t, v.Valid)
	assert.Equal(t, "hello", v.String)
	assert.Equal(t, "hello", PgTextToString(v))
	assert.Equal(t, "", PgTextToString(ToPgText("")))
}

func TestToPgUUID(t *testing.T) {
	id := "6f1c2a7e-3b7d-4c55-9d0e-2f4b8a1c9e11"

	assert.False(t, ToPgUUID("").Valid)
	assert.False(t, ToPgUUID("not-a-uuid").Valid)

	u := ToPgUUID(id)
	assert.True(t, u.Valid)
	assert.Equal(t, id, PgUUIDToString(u))
	assert.Equal(t, "", PgUUIDToString(ToPgUUID("")))
}

func TestToPgInt4AndTimestamptz(t *testing.T) {
	assert.False(t, ToPgInt4(0).Valid)
	assert.Equal(t, int32(42), ToPgInt4(42).Int32)

	assert.False(t, ToPgTimestamptz(time.Time{}).Valid)
	assert.Nil(t, PgTimestamptzToPtr(ToPgTimestamptz(time.Time{})))

	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	ptr := PgTimestamptzToPtr(ToPgTimestamptz(now))
	require.NotNil(t, ptr)
	assert.True(t, now.Equal(*ptr))
}

func TestParseIPAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"203.0.113.7", "203.0.113.7"},
		{"203.0.113.7:51234", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"not an ip", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseIPAddress(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
