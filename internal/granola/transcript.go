package granola

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/models"
)

type transcriptRequest struct {
	DocumentID string `json:"document_id"`
}

type apiSegment struct {
	Source  string    `json:"source"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Start   time.Time `json:"start_timestamp"`
	End     time.Time `json:"end_timestamp"`
	IsFinal *bool     `json:"is_final"`
}

// Transcript fetches the ordered transcript segments of a document.
func (c *Client) Transcript(ctx context.Context, documentID string) ([]models.TranscriptSegment, error) {
	var segs []apiSegment
	if err := c.post(ctx, "/v1/get-document-transcript", transcriptRequest{DocumentID: documentID}, &segs); err != nil {
		return nil, err
	}
	out := make([]models.TranscriptSegment, 0, len(segs))
	for _, s := range segs {
		if s.IsFinal != nil && !*s.IsFinal {
			continue
		}
		out = append(out, models.TranscriptSegment{
			Source:  s.Source,
			Speaker: s.Speaker,
			Text:    s.Text,
			Start:   s.Start,
			End:     s.End,
		})
	}
	return out, nil
}

// Attachment downloads an attachment. Requests to CDN hosts carry no
// credentials.
func (c *Client) Attachment(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("granola: invalid attachment url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("granola: build request: %w", err)
	}
	if !c.isCDN(u.Hostname()) {
		tok, err := c.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("granola: read attachment: %w", err)
	}
	return data, nil
}

func (c *Client) isCDN(host string) bool {
	host = strings.ToLower(host)
	for _, h := range c.cfg.CDNHosts {
		h = strings.ToLower(strings.TrimPrefix(h, "."))
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
