package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState_Transitions(t *testing.T) {
	recs := []player{
		{ID: 1, Name: "Alice", Score: 90},
		{ID: 2, Name: "Bob", Score: 90},
		{ID: 3, Name: "Cara", Score: 70},
		{ID: 4, Name: "Dan", Score: 60},
		{ID: 5, Name: "Eve", Score: 85},
	}
	s := NewState(playerDefinition(), recs, NewQuery(2))

	v := s.View()
	assert.Equal(t, 3, v.PageCount)
	assert.Equal(t, 1, v.Page)

	v = s.SetPage(3)
	assert.Equal(t, []string{"Eve"}, names(v.PageRows))

	t.Run("sort keeps page", func(t *testing.T) {
		v := s.SetSort("score", Desc)
		assert.Equal(t, 3, v.Page)
		assert.Equal(t, []string{"Dan"}, names(v.PageRows))
	})

	t.Run("page size change clamps page", func(t *testing.T) {
		v := s.SetPageSize(4)
		assert.Equal(t, 2, v.Page)
		assert.Equal(t, 2, v.PageCount)
	})

	t.Run("search resets page", func(t *testing.T) {
		s.SetPage(2)
		v := s.SetSearch("a")
		assert.Equal(t, 1, v.Page)
		assert.Equal(t, []string{"Alice", "Cara", "Dan"}, names(v.Rows))
	})

	t.Run("filter resets page and clears", func(t *testing.T) {
		s.SetSearch("")
		s.SetPageSize(1)
		s.SetPage(3)

		v := s.SetFilter("tier", "high")
		assert.Equal(t, 1, v.Page)
		assert.Equal(t, 3, v.Total)

		v = s.ClearFilter("tier")
		assert.Equal(t, 5, v.Total)
	})

	t.Run("next and prev stop at the edges", func(t *testing.T) {
		s.SetPageSize(2)
		s.SetPage(1)

		v := s.PrevPage()
		assert.Equal(t, 1, v.Page)

		s.NextPage()
		s.NextPage()
		v = s.NextPage()
		assert.Equal(t, 3, v.Page)

		v = s.PrevPage()
		assert.Equal(t, 2, v.Page)
	})

	t.Run("toggle sort flips direction", func(t *testing.T) {
		s.ToggleSort("name")
		assert.Equal(t, Asc, s.Query().SortDir)
		s.ToggleSort("name")
		assert.Equal(t, Desc, s.Query().SortDir)
		assert.Equal(t, "Eve", s.View().Rows[0].Name)
	})

	t.Run("new records reset page", func(t *testing.T) {
		s.SetPage(2)
		v := s.SetRecords(recs[:3])
		assert.Equal(t, 1, v.Page)
		assert.Equal(t, 3, v.Total)
	})
}

func TestQuery_ValueSemantics(t *testing.T) {
	q := NewQuery(10).WithFilter("a", "1")
	q2 := q.WithFilter("b", "2")

	_, ok := q.Selected("b")
	assert.False(t, ok)
	v, ok := q2.Selected("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	q3 := q2.WithoutFilter("a")
	_, ok = q2.Selected("a")
	assert.True(t, ok)
	_, ok = q3.Selected("a")
	assert.False(t, ok)
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection("DESC"))
	assert.Equal(t, Desc, ParseDirection(" desc "))
	assert.Equal(t, Asc, ParseDirection("asc"))
	assert.Equal(t, Asc, ParseDirection("sideways"))
	assert.Equal(t, Asc, ParseDirection(""))
}
