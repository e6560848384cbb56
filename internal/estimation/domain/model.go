package domain

import "time"

// Project status values. Only complete projects are used as history.
const (
	StatusDraft    = "draft"
	StatusComplete = "complete"
)

// Team is the team composition attached to a project.
// Frontend and Backend are the legacy shape and fold into Developers.
type Team struct {
	Developers int `json:"developers"`
	Designers  int `json:"designers"`
	Frontend   int `json:"frontend,omitempty"`
	Backend    int `json:"backend,omitempty"`
}

// Canonical folds the legacy frontend/backend counts into Developers.
func (t Team) Canonical() Team {
	if t.Developers == 0 {
		t.Developers = t.Frontend + t.Backend
	}
	t.Frontend, t.Backend = 0, 0
	return t
}

// Size is the headcount used for team-size scaling.
func (t Team) Size() int {
	c := t.Canonical()
	return c.Developers + c.Designers
}

// Project is a stored estimate. Duration is in days, Budget in currency units.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Budget      float64    `json:"budget"`
	Duration    int        `json:"duration"`
	Team        Team       `json:"team"`
	Status      string     `json:"status,omitempty"`
	Modules     []Module   `json:"modules"`
	ChatHistory []ChatTurn `json:"chatHistory,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Module struct {
	ID         string      `json:"id,omitempty"`
	Name       string      `json:"name"`
	Submodules []Submodule `json:"submodules"`
}

// Submodule is the smallest estimated unit of work. Duration is in hours.
type Submodule struct {
	ID             string  `json:"id,omitempty"`
	Title          string  `json:"title"`
	ProcessedTitle string  `json:"processedTitle"`
	Description    string  `json:"description,omitempty"`
	Category       string  `json:"category,omitempty"`
	Duration       float64 `json:"duration"`
	Exists         bool    `json:"exists"`
}

// Suggestion is the flat per-task shape exchanged with the web client.
type Suggestion struct {
	ModuleName string  `json:"moduleName"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Exists     bool    `json:"exists"`
}

// Match is a stored submodule that matched a title.
// Duration is the team-adjusted time when the owning project is known.
type Match struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Title        string  `json:"title,omitempty"`
	Category     string  `json:"category,omitempty"`
	ModuleID     string  `json:"moduleId,omitempty"`
	Priority     int     `json:"priority"`
	OriginalTime float64 `json:"originalTime"`
	Duration     float64 `json:"duration"`
}

// TitleMatches is one extracted title with its historical matches.
type TitleMatches struct {
	OriginalTitle  string  `json:"originalTitle"`
	ProcessedTitle string  `json:"processedTitle"`
	Description    string  `json:"description,omitempty"`
	Category       string  `json:"category,omitempty"`
	Exists         bool    `json:"exists"`
	Matches        []Match `json:"matches"`
}

// ModuleTitles groups extracted titles under a module name.
type ModuleTitles struct {
	Name   string         `json:"name"`
	Titles []TitleMatches `json:"titles"`
}

// HistoricalReference is derived from stored projects on each run and never persisted.
type HistoricalReference struct {
	SubmoduleID      string  `json:"submoduleId"`
	ProjectTitle     string  `json:"projectTitle"`
	ModuleName       string  `json:"moduleName"`
	SubmoduleName    string  `json:"submoduleName"`
	Category         string  `json:"category"`
	OriginalTime     float64 `json:"originalTime"`
	AdjustedTime     float64 `json:"adjustedTime"`
	OriginalTeamSize int     `json:"originalTeamSize"`
}

type ChatTurn struct {
	User        string    `json:"user"`
	Explanation string    `json:"explanation"`
	Timestamp   time.Time `json:"timestamp"`
}

// TotalHours sums every submodule duration.
func (p *Project) TotalHours() float64 {
	var sum float64
	for _, m := range p.Modules {
		for _, s := range m.Submodules {
			sum += s.Duration
		}
	}
	return sum
}

// Suggestions flattens the module tree in order.
func (p *Project) Suggestions() []Suggestion {
	var out []Suggestion
	for _, m := range p.Modules {
		for _, s := range m.Submodules {
			out = append(out, Suggestion{
				ModuleName: m.Name,
				Title:      s.Title,
				Duration:   s.Duration,
				Exists:     s.Exists,
			})
		}
	}
	return out
}

// GroupSuggestions rebuilds a module list from flat suggestions, keeping first-seen module order.
func GroupSuggestions(items []Suggestion) []Module {
	var modules []Module
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.ModuleName]
		if !ok {
			i = len(modules)
			index[it.ModuleName] = i
			modules = append(modules, Module{Name: it.ModuleName})
		}
		modules[i].Submodules = append(modules[i].Submodules, Submodule{
			Title:          it.Title,
			ProcessedTitle: NormalizeTitle(it.Title),
			Duration:       it.Duration,
			Exists:         it.Exists,
		})
	}
	return modules
}
