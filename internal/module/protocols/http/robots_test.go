package http

import (
	"testing"

	"github.com/nethawk-io/nethawk/internal/model"
)

func TestParseRobots(t *testing.T) {
	body := "# comment\nUser-agent: *\nDisallow: /admin\nAllow: /public\nSitemap: https://example.com/sitemap.xml\n"
	got := parseRobots(body)

	want := []model.RobotsEntry{
		{Path: "/admin", Kind: model.RobotsDisallowed},
		{Path: "/public", Kind: model.RobotsAllowed},
		{Path: "https://example.com/sitemap.xml", Kind: model.RobotsSitemap},
	}
	if len(got) != len(want) {
		t.Fatalf("parseRobots() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i].Path != want[i].Path || got[i].Kind != want[i].Kind {
			t.Errorf("parseRobots()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseRobots_IgnoresBlankAndCommentLines(t *testing.T) {
	got := parseRobots("\n# comment\n\nUser-agent: *\n")
	if len(got) != 0 {
		t.Errorf("parseRobots() = %+v, want empty", got)
	}
}
