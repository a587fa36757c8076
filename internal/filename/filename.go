// Package filename turns a document into a vault-safe note file name.
package filename

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/goliatone/go-slug"

	"github.com/starford/granola-sync/internal/models"
)

// Defaults.
const (
	DefaultTemplate   = "{created_date}_{title}"
	DefaultDateFormat = "YYYY-MM-DD"
	DefaultSeparator  = "_"
	DefaultSlash      = "-"

	// SuffixLayout is appended on a timestamp collision.
	SuffixLayout = "20060102-150405"

	timePattern = "HH-mm"
)

var (
	slashRe      = regexp.MustCompile(`\s*/\s*`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	stripper     = strings.NewReplacer(":", "", `\`, "", "|", "", "?", "", "*", "", `"`, "")
)

// Options configures name generation.
type Options struct {
	Template         string
	DateFormat       string
	Separator        string
	SlashReplacement string
	Location         *time.Location
}

// dateTokens are tried longest first so YYYY never matches as two YY.
var dateTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// FormatDate renders t with a pattern made of YYYY YY MM DD HH mm ss tokens.
// Any other character is copied literally.
func FormatDate(t time.Time, pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		matched := false
		for _, tok := range dateTokens {
			if strings.HasPrefix(pattern[i:], tok.token) {
				sb.WriteString(t.Format(tok.layout))
				i += len(tok.token)
				matched = true
				break
			}
		}
		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}

// Generate builds the base name (without extension) for doc. It never returns
// an empty string: a name that sanitizes to nothing falls back to the id.
func Generate(doc *models.Document, opts Options) string {
	opts = withDefaults(opts)
	created := doc.CreatedAt.In(opts.Location)
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = doc.CreatedAt
	}
	updated = updated.In(opts.Location)

	r := strings.NewReplacer(
		"{title}", doc.Title,
		"{id}", doc.ID,
		"{created_date}", FormatDate(created, opts.DateFormat),
		"{updated_date}", FormatDate(updated, opts.DateFormat),
		"{created_time}", FormatDate(created, timePattern),
		"{updated_time}", FormatDate(updated, timePattern),
		"{created_datetime}", FormatDate(created, opts.DateFormat)+" "+FormatDate(created, timePattern),
		"{updated_datetime}", FormatDate(updated, opts.DateFormat)+" "+FormatDate(updated, timePattern),
	)
	name := Sanitize(r.Replace(opts.Template), opts.Separator, opts.SlashReplacement)
	if name == "" || strings.Trim(name, opts.Separator+".") == "" {
		name = Sanitize(doc.ID, opts.Separator, opts.SlashReplacement)
	}
	return name
}

// Sanitize removes path-breaking characters from name and collapses
// whitespace runs into sep. Slashes become slashReplacement.
func Sanitize(name, sep, slashReplacement string) string {
	name = slashRe.ReplaceAllLiteralString(name, slashReplacement)
	name = stripper.Replace(name)
	name = strings.TrimSpace(name)
	return whitespaceRe.ReplaceAllLiteralString(name, sep)
}

// WithSuffix appends the collision suffix derived from t to base.
func WithSuffix(base, sep string, t time.Time) string {
	return base + sep + t.Format(SuffixLayout)
}

// Attachment names the n-th attachment of the document docID titled title.
// The id keeps attachments of same-titled documents apart.
func Attachment(title, docID string, n int, ext string) string {
	base, err := slug.Normalize(title)
	if err != nil || base == "" {
		base = "attachment"
	}
	if id, err := slug.Normalize(docID); err == nil && id != "" {
		id = strings.ReplaceAll(id, "-", "")
		if len(id) > 8 {
			id = id[:8]
		}
		if id != "" {
			base += "-" + id
		}
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return fmt.Sprintf("%s-%d", base, n)
	}
	return fmt.Sprintf("%s-%d.%s", base, n, strings.ToLower(ext))
}

// Extension guesses a file extension from a URL path and a MIME type.
func Extension(rawURL, mimeType string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	if ext := strings.TrimPrefix(path.Ext(rawURL), "."); ext != "" && len(ext) <= 5 {
		return strings.ToLower(ext)
	}
	switch strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0])) {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	case "application/pdf":
		return "pdf"
	}
	return "bin"
}

func withDefaults(o Options) Options {
	if o.Template == "" {
		o.Template = DefaultTemplate
	}
	if o.DateFormat == "" {
		o.DateFormat = DefaultDateFormat
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}
