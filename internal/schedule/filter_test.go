package schedule

import (
	"strings"
	"testing"

	"festgrid/internal/model"
)

func sample(t *testing.T) []Resolved {
	t.Helper()
	return ResolveAll([]model.Performance{
		{ID: "p1", Name: "嘻哈派對", Artist: "嘻哈派對", StageID: "stage1", Date: "2025-03-29", StartTime: "11:00", EndTime: "12:00", EventTypeID: "music"},
		{ID: "p3", Name: "真愛第一站", Artist: "真愛第一站", StageID: "stage2", Date: "2025-03-29", StartTime: "13:30", EndTime: "14:30", EventTypeID: "talk"},
		{ID: "p5", Name: "DJ Yellow Yellow", Artist: "DJ Yellow Yellow", StageID: "stage5", Date: "2025-03-29", StartTime: "13:30", EndTime: "15:30", EventTypeID: "dj"},
		{ID: "p20", Name: "早晨爵士", Artist: "爵士三重奏", StageID: "stage1", Date: "2025-03-30", StartTime: "11:00", EndTime: "12:30"},
	}, venue(t))
}

func ids(rs []Resolved) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func TestSelectForExportOtherDateIsEmpty(t *testing.T) {
	got := SelectForExport(sample(t), model.NewFavorites("p1"), "2025-03-30", false)
	if len(got) != 0 {
		t.Errorf("SelectForExport = %v, want none", ids(got))
	}
}

func TestSelectForExportAllDays(t *testing.T) {
	favs := model.NewFavorites("p1", "p20")
	if got := SelectForExport(sample(t), favs, "2025-03-29", true); len(got) != 2 {
		t.Errorf("all-days export = %v, want p1 and p20", ids(got))
	}
	if got := SelectForExport(sample(t), favs, "2025-03-29", false); len(got) != 1 || got[0].ID != "p1" {
		t.Errorf("single-day export = %v, want p1", ids(got))
	}
}

func TestFilterApply(t *testing.T) {
	perfs := sample(t)
	tests := []struct {
		name   string
		filter Filter
		favs   *model.Favorites
		want   []string
	}{
		{"no filter", Filter{}, nil, []string{"p1", "p3", "p5", "p20"}},
		{"stages", Filter{Stages: map[string]bool{"stage1": true}}, nil, []string{"p1", "p20"}},
		{"event types", Filter{EventTypes: map[string]bool{"dj": true}}, nil, []string{"p5", "p20"}},
		{"favorites only", Filter{FavoritesOnly: true}, model.NewFavorites("p3"), []string{"p3"}},
		{"search name", Filter{Query: "yellow"}, nil, []string{"p5"}},
		{"search artist", Filter{Query: "三重奏"}, nil, []string{"p20"}},
	}
	for _, tt := range tests {
		got := ids(tt.filter.Apply(perfs, tt.favs))
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}
}

func TestStagesToDisplay(t *testing.T) {
	stages := []model.Stage{{ID: "stage1"}, {ID: "stage2"}, {ID: "stage5"}}
	perfs := ForDate(sample(t), "2025-03-29")

	if got := StagesToDisplay(stages, perfs, nil, false); len(got) != 3 {
		t.Errorf("all stages = %d, want 3", len(got))
	}
	got := StagesToDisplay(stages, perfs, model.NewFavorites("p5"), true)
	if len(got) != 1 || got[0].ID != "stage5" {
		t.Errorf("favorite stages = %v, want stage5", got)
	}
}

func TestGroupByStart(t *testing.T) {
	groups := GroupByStart(ForDate(sample(t), "2025-03-29"))
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].StartTime != "11:00" || groups[1].StartTime != "13:30" {
		t.Errorf("group order = %s, %s", groups[0].StartTime, groups[1].StartTime)
	}
	if got := ids(groups[1].Performances); len(got) != 2 || got[0] != "p3" || got[1] != "p5" {
		t.Errorf("13:30 group = %v, want p3, p5", got)
	}
}

func TestGroupByStartKeepsDaysApart(t *testing.T) {
	groups := GroupByStart(SortByStart(sample(t)))
	seen := make(map[string]int)
	for _, g := range groups {
		if strings.Contains(g.StartTime, "-") {
			t.Errorf("StartTime = %q, want a bare clock time", g.StartTime)
		}
		for _, p := range g.Performances {
			if p.StartTime != g.StartTime || p.Date != g.Performances[0].Date {
				t.Errorf("group %q holds %s on %s %s", g.StartTime, p.ID, p.Date, p.StartTime)
			}
		}
		seen[g.Performances[0].Date]++
	}
	if len(seen) < 2 {
		t.Fatalf("sample has %d dates, want at least 2", len(seen))
	}
}

func TestSortByStart(t *testing.T) {
	perfs := sample(t)
	shuffled := []Resolved{perfs[3], perfs[2], perfs[0], perfs[1]}
	got := ids(SortByStart(shuffled))
	want := []string{"p1", "p5", "p3", "p20"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SortByStart = %v, want %v", got, want)
		}
	}
}
