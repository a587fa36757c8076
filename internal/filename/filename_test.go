package filename

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/starford/granola-sync/internal/models"
)

func doc(title string) *models.Document {
	return &models.Document{
		ID:        "abc",
		Title:     title,
		CreatedAt: time.Date(2025, 1, 2, 9, 5, 7, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 4, 17, 45, 0, 0, time.UTC),
	}
}

func TestFormatDate(t *testing.T) {
	ts := time.Date(2025, 1, 2, 9, 5, 7, 0, time.UTC)
	cases := map[string]string{
		"YYYY-MM-DD":          "2025-01-02",
		"YY.MM.DD":            "25.01.02",
		"DD/MM/YYYY HH:mm:ss": "02/01/2025 09:05:07",
		"YYYYYY":              "202525",
		"Week of YYYY":        "Week of 2025",
	}
	for pattern, want := range cases {
		if got := FormatDate(ts, pattern); got != want {
			t.Errorf("FormatDate(%q) = %q, want %q", pattern, got, want)
		}
	}
}

func TestGenerate(t *testing.T) {
	cases := []struct {
		name  string
		title string
		opts  Options
		want  string
	}{
		{"defaults", "Standup", Options{SlashReplacement: "-"}, "2025-01-02_Standup"},
		{"spaces collapse", "Weekly   Team  Sync", Options{}, "2025-01-02_Weekly_Team_Sync"},
		{"slash replaced", "Q1 / Q2 planning", Options{SlashReplacement: "-"}, "2025-01-02_Q1-Q2_planning"},
		{"slash removed", "A/B", Options{}, "2025-01-02_AB"},
		{"invalid stripped", `Re: "why?" a|b*c\d`, Options{}, "2025-01-02_Re_why_abcd"},
		{"angle brackets kept", "<draft>", Options{}, "2025-01-02_<draft>"},
		{"custom template", "Retro", Options{Template: "{title} {updated_datetime}", Separator: " "}, "Retro 2025-03-04 17-45"},
		{"id token", "x", Options{Template: "{id}-{created_time}"}, "abc-09-05"},
		{"dash separator", "One Two", Options{Separator: "-", DateFormat: "YYYYMMDD"}, "20250102_One-Two"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Location = time.UTC
			if got := Generate(doc(tc.title), tc.opts); got != tc.want {
				t.Errorf("Generate() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerate_EmptyFallsBackToID(t *testing.T) {
	got := Generate(doc(`???`), Options{Template: "{title}", Location: time.UTC})
	if got != "abc" {
		t.Errorf("Generate() = %q, want id fallback", got)
	}
}

func TestWithSuffix(t *testing.T) {
	ts := time.Date(2025, 1, 2, 9, 5, 7, 0, time.UTC)
	if got := WithSuffix("2025-01-02_Standup", "_", ts); got != "2025-01-02_Standup_20250102-090507" {
		t.Errorf("WithSuffix() = %q", got)
	}
}

func TestAttachment(t *testing.T) {
	got := Attachment("Weekly Sync", "", 2, ".PNG")
	if !strings.HasSuffix(got, "-2.png") || strings.ContainsAny(got, " /") {
		t.Errorf("Attachment() = %q", got)
	}
	if got := Attachment("", "", 1, "pdf"); got != "attachment-1.pdf" {
		t.Errorf("Attachment(empty) = %q", got)
	}
	if got := Attachment("", "9f3c2a1b-77aa-4e", 1, "png"); got != "attachment-9f3c2a1b-1.png" {
		t.Errorf("Attachment(with id) = %q", got)
	}
}

func TestAttachment_SameTitleDifferentDocuments(t *testing.T) {
	a := Attachment("Standup", "doc-aaaa1111", 1, "png")
	b := Attachment("Standup", "doc-bbbb2222", 1, "png")
	if a == b {
		t.Errorf("same-titled documents share attachment name %q", a)
	}
}

func TestExtension(t *testing.T) {
	cases := []struct{ url, mime, want string }{
		{"https://cdn.example.com/a/b.JPG?sig=1", "", "jpg"},
		{"https://cdn.example.com/a/b", "image/png", "png"},
		{"https://cdn.example.com/a/b", "image/jpeg; charset=binary", "jpg"},
		{"https://cdn.example.com/a/b", "", "bin"},
	}
	for _, tc := range cases {
		if got := Extension(tc.url, tc.mime); got != tc.want {
			t.Errorf("Extension(%q, %q) = %q, want %q", tc.url, tc.mime, got, tc.want)
		}
	}
}

func TestSanitize_ReplacementsAreLiteral(t *testing.T) {
	cases := []struct{ name, sep, slash, want string }{
		{"A/B", "_", "$1", "A$1B"},
		{"A / B", "_", "$", "A$B"},
		{"Q1 plan", "${0}", "-", "Q1${0}plan"},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.name, tc.sep, tc.slash); got != tc.want {
			t.Errorf("Sanitize(%q, %q, %q) = %q, want %q", tc.name, tc.sep, tc.slash, got, tc.want)
		}
	}
}

func TestSanitize_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	chars := gen.RuneRange(' ', '~')
	title := gen.SliceOf(chars).Map(func(rs []rune) string { return string(rs) })

	properties.Property("no path-breaking characters survive", prop.ForAll(
		func(s string) bool {
			return !strings.ContainsAny(Sanitize(s, "_", "-"), "/:\\|?*\" \t")
		},
		title,
	))
	properties.Property("sanitizing twice changes nothing", prop.ForAll(
		func(s string) bool {
			once := Sanitize(s, "_", "-")
			return Sanitize(once, "_", "-") == once
		},
		title,
	))
	properties.TestingRun(t)
}
