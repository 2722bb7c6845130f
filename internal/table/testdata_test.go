package table

type player struct {
	ID    int
	Name  string
	Score int
	Team  *string
}

func strPtr(s string) *string { return &s }

var playerColumns = MustColumns(
	Column[player]{ID: "id", Label: "ID", Accessor: func(p player) any { return p.ID }},
	Column[player]{ID: "name", Label: "Name", Accessor: func(p player) any { return p.Name }},
	Column[player]{ID: "score", Label: "Score", Accessor: func(p player) any { return p.Score }},
	Column[player]{ID: "team", Label: "Team", Accessor: func(p player) any { return p.Team }},
)

var playerFilters = MustFilters(
	Filter[player]{
		ID:      "tier",
		Label:   "Tier",
		Options: []Option{{Value: "high", Label: "80 and up"}, {Value: "low", Label: "Below 80"}},
		Predicate: func(p player, selected string) bool {
			if selected == "high" {
				return p.Score >= 80
			}
			return p.Score < 80
		},
	},
)

func players() []player {
	return []player{
		{ID: 1, Name: "Alice", Score: 90, Team: strPtr("red")},
		{ID: 2, Name: "Bob", Score: 90},
		{ID: 3, Name: "Cara", Score: 70, Team: strPtr("blue")},
	}
}

func names(ps []player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func playerDefinition() Definition[player] {
	return Definition[player]{
		Key:             "players",
		Columns:         playerColumns,
		Filters:         playerFilters,
		DefaultPageSize: 25,
	}
}

func rowRecords() []Row {
	return []Row{
		{"id": 1, "name": "Alice", "score": 90},
		{"id": 2, "name": "Bob", "score": 90},
		{"id": 3, "name": "Cara", "score": 70},
	}
}
