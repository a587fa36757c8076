package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/filename"
	"github.com/starford/granola-sync/internal/models"
	"github.com/starford/granola-sync/internal/richtext"
)

// Section headings of the note body, in fixed order.
const (
	HeadingMyNotes       = "## My Notes"
	HeadingEnhancedNotes = "## Enhanced Notes"
	HeadingTranscript    = "## Transcript"
	HeadingAttachments   = "## Attachments"

	untitled = "Untitled"
)

var imageExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "webp": {}, "svg": {}, "bmp": {}, "avif": {},
}

// sections holds the rendered material of one document.
type sections struct {
	myNotes     string
	enhanced    string
	transcript  string
	attachments []attachmentFile
	// fetchTranscript is set while the transcript still has to be fetched.
	fetchTranscript bool
}

func (s sections) empty() bool {
	return s.myNotes == "" && s.enhanced == "" && s.transcript == "" && len(s.attachments) == 0
}

type attachmentFile struct {
	url  string
	path string
	name string
}

// Embed returns the Markdown embed line for an attachment file.
func Embed(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if _, ok := imageExtensions[ext]; ok {
		return "![[" + name + "]]"
	}
	return "[[" + name + "]]"
}

// Body renders the note body below the header.
func Body(title string, s sections) string {
	if strings.TrimSpace(title) == "" {
		title = untitled
	}
	parts := []string{"# " + title}
	if s.myNotes != "" {
		parts = append(parts, HeadingMyNotes+"\n\n"+s.myNotes)
	}
	if s.enhanced != "" {
		parts = append(parts, HeadingEnhancedNotes+"\n\n"+s.enhanced)
	}
	if s.transcript != "" {
		parts = append(parts, HeadingTranscript+"\n\n"+s.transcript)
	}
	if len(s.attachments) > 0 {
		lines := make([]string, len(s.attachments))
		for i, a := range s.attachments {
			lines[i] = Embed(a.name)
		}
		parts = append(parts, HeadingAttachments+"\n\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Speaker labels for transcript sources.
const (
	SpeakerMe    = "Me"
	SpeakerThem  = "Them"
	speakerOther = "Speaker"
)

// SpeakerName returns the label for a segment.
func SpeakerName(seg models.TranscriptSegment) string {
	if s := strings.TrimSpace(seg.Speaker); s != "" {
		return s
	}
	switch seg.Source {
	case "microphone":
		return SpeakerMe
	case "system":
		return SpeakerThem
	}
	return speakerOther
}

// RenderTranscript merges consecutive segments of the same speaker into one
// block per turn, stamped with its offset from the first segment.
func RenderTranscript(segments []models.TranscriptSegment) string {
	type turn struct {
		speaker string
		start   time.Time
		text    []string
	}
	var turns []turn
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		speaker := SpeakerName(seg)
		if n := len(turns); n > 0 && turns[n-1].speaker == speaker {
			turns[n-1].text = append(turns[n-1].text, text)
			continue
		}
		turns = append(turns, turn{speaker: speaker, start: seg.Start, text: []string{text}})
	}

	var origin time.Time
	for _, seg := range segments {
		if !seg.Start.IsZero() {
			origin = seg.Start
			break
		}
	}
	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		var offset time.Duration
		if !t.start.IsZero() && t.start.After(origin) {
			offset = t.start.Sub(origin)
		}
		stamp := clock(offset)
		blocks = append(blocks, "**"+t.speaker+"** *("+stamp+")*: "+strings.Join(t.text, " "))
	}
	return strings.Join(blocks, "\n\n")
}

func clock(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// render collects the enabled sections of doc. The remote transcript and
// attachment files are only planned here; they are fetched once a write is
// decided.
func (e *Engine) render(doc *models.Document) sections {
	var s sections
	if e.opts.IncludeMyNotes {
		s.myNotes = richtext.ToMarkdown(doc.Panel(models.PanelMyNotes))
	}
	if e.opts.IncludeEnhancedNotes {
		s.enhanced = richtext.ToMarkdown(doc.Panel(models.PanelEnhancedNotes))
	}
	if e.opts.IncludeTranscript {
		if len(doc.Transcript) > 0 {
			s.transcript = RenderTranscript(doc.Transcript)
		} else {
			s.fetchTranscript = e.fetch != nil
		}
	}
	if e.opts.DownloadAttachments && e.fetch != nil {
		s.attachments = e.planAttachments(doc)
	}
	return s
}

// loadTranscript fetches a planned transcript.
func (e *Engine) loadTranscript(ctx context.Context, doc *models.Document, s *sections) error {
	if !s.fetchTranscript {
		return nil
	}
	segments, err := e.fetch.Transcript(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("reconcile: content: %w", err)
	}
	s.transcript = RenderTranscript(segments)
	s.fetchTranscript = false
	return nil
}

func (e *Engine) planAttachments(doc *models.Document) []attachmentFile {
	dir := path.Join(e.opts.Directory, e.opts.AttachmentsDirectory)
	var out []attachmentFile
	for _, a := range doc.Attachments {
		if strings.TrimSpace(a.URL) == "" {
			continue
		}
		name := filename.Attachment(doc.Title, doc.ID, len(out)+1, filename.Extension(a.URL, a.Type))
		out = append(out, attachmentFile{url: a.URL, name: name, path: path.Join(dir, name)})
	}
	return out
}

// download fetches planned attachments. A file already in the vault is
// rewritten only when the fetched bytes differ, and kept as is when the fetch
// fails. A failed download of a new file drops that attachment from the note.
// It returns the kept attachments and the new paths written by this call.
func (e *Engine) download(ctx context.Context, ws *workspace, planned []attachmentFile) ([]attachmentFile, []string) {
	var kept []attachmentFile
	var written []string
	for _, a := range planned {
		ok, err := ws.exists(a.path)
		existed := err == nil && ok
		if ws.dryRun {
			kept = append(kept, a)
			continue
		}
		data, err := e.fetch.Attachment(ctx, a.url)
		if err == nil && existed {
			if old, rerr := ws.read(a.path); rerr == nil && bytes.Equal(old, data) {
				kept = append(kept, a)
				continue
			}
		}
		if err == nil {
			err = ws.write(a.path, data, false)
		}
		if err != nil {
			e.logger.Warn("reconcile: attachment failed",
				slog.String("url", a.url),
				slog.String("path", a.path),
				slog.String("error", err.Error()))
			if existed {
				kept = append(kept, a)
			}
			continue
		}
		kept = append(kept, a)
		if !existed {
			written = append(written, a.path)
		}
	}
	return kept, written
}
