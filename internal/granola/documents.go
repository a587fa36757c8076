package granola

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/granola-sync/internal/models"
)

type listRequest struct {
	Limit                  int  `json:"limit"`
	Offset                 int  `json:"offset"`
	IncludeLastViewedPanel bool `json:"include_last_viewed_panel"`
}

// listResponse keeps documents raw so one malformed entry does not cost the
// rest of the page.
type listResponse struct {
	Docs []json.RawMessage `json:"docs"`
}

type apiDocument struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	CreatedAt       apiTime       `json:"created_at"`
	UpdatedAt       apiTime       `json:"updated_at"`
	DeletedAt       *apiTime      `json:"deleted_at"`
	Notes           *models.Node  `json:"notes"`
	LastViewedPanel *apiPanel     `json:"last_viewed_panel"`
	CalendarEvent   *apiEvent     `json:"google_calendar_event"`
	People          *apiPeople    `json:"people"`
	Attachments     []apiAttached `json:"attachments"`
}

type apiPanel struct {
	Content *models.Node `json:"content"`
}

type apiEvent struct {
	Start          apiEventTime     `json:"start"`
	End            apiEventTime     `json:"end"`
	Location       string           `json:"location"`
	HangoutLink    string           `json:"hangoutLink"`
	Attendees      []apiAttendee    `json:"attendees"`
	ConferenceData *apiConferencing `json:"conferenceData"`
}

type apiEventTime struct {
	DateTime apiTime `json:"dateTime"`
}

// apiTime is an RFC 3339 timestamp where an empty string or null is the zero
// time.
type apiTime struct {
	time.Time
}

func (t *apiTime) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		t.Time = time.Time{}
		return nil
	}
	v, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*s))
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

type apiAttendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	ResponseStatus string `json:"responseStatus"`
	Self           bool   `json:"self"`
}

type apiConferencing struct {
	EntryPoints []struct {
		URI string `json:"uri"`
	} `json:"entryPoints"`
}

type apiPeople struct {
	Creator   *apiPerson  `json:"creator"`
	Attendees []apiPerson `json:"attendees"`
}

type apiPerson struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Email          string `json:"email"`
	ResponseStatus string `json:"responseStatus"`
	Details        struct {
		Person struct {
			Name struct {
				FullName   string `json:"fullName"`
				GivenName  string `json:"givenName"`
				FamilyName string `json:"familyName"`
			} `json:"name"`
		} `json:"person"`
		Company struct {
			Name string `json:"name"`
		} `json:"company"`
	} `json:"details"`
}

type apiAttached struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ListDocuments pages through the document listing until a short page or
// MaxDocuments is reached. On a failure after the first page it returns the
// documents collected so far together with the error.
func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var out []models.Document
	for offset := 0; ; {
		limit := c.cfg.PageSize
		if c.cfg.MaxDocuments > 0 {
			if remaining := c.cfg.MaxDocuments - len(out); remaining < limit {
				limit = remaining
			}
		}
		if limit <= 0 {
			return out, nil
		}

		var page listResponse
		req := listRequest{Limit: limit, Offset: offset, IncludeLastViewedPanel: true}
		if err := c.post(ctx, "/v2/get-documents", req, &page); err != nil {
			return out, err
		}
		for i, raw := range page.Docs {
			doc, err := decodeDocument(raw)
			if err != nil {
				c.logger.Warn("granola: skipping malformed document",
					slog.Int("offset", offset+i),
					slog.String("granola_id", doc.ID),
					slog.String("error", err.Error()))
				continue
			}
			if doc.DeletedAt != nil && !doc.DeletedAt.IsZero() {
				continue
			}
			out = append(out, doc.toModel())
		}
		if len(page.Docs) < limit {
			return out, nil
		}
		offset += len(page.Docs)
	}
}

// decodeDocument unmarshals one listing entry. On failure the returned
// document carries the id when it could be recovered.
func decodeDocument(raw json.RawMessage) (*apiDocument, error) {
	var d apiDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		var head struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(raw, &head)
		return &apiDocument{ID: head.ID}, fmt.Errorf("granola: decode document: %w", err)
	}
	return &d, nil
}

func (d *apiDocument) toModel() models.Document {
	doc := models.Document{
		ID:        strings.TrimSpace(d.ID),
		Title:     strings.TrimSpace(d.Title),
		CreatedAt: d.CreatedAt.Time,
		UpdatedAt: d.UpdatedAt.Time,
	}
	if d.Notes != nil {
		doc.Panels = append(doc.Panels, models.Panel{Kind: models.PanelMyNotes, Content: d.Notes})
	}
	if d.LastViewedPanel != nil && d.LastViewedPanel.Content != nil {
		doc.Panels = append(doc.Panels, models.Panel{Kind: models.PanelEnhancedNotes, Content: d.LastViewedPanel.Content})
	}
	if ev := d.CalendarEvent; ev != nil {
		cal := &models.CalendarEvent{
			Start:    ev.Start.DateTime.Time,
			End:      ev.End.DateTime.Time,
			Location: ev.Location,
		}
		if ev.HangoutLink != "" {
			cal.ConferenceURIs = append(cal.ConferenceURIs, ev.HangoutLink)
		}
		if ev.ConferenceData != nil {
			for _, ep := range ev.ConferenceData.EntryPoints {
				if ep.URI != "" {
					cal.ConferenceURIs = append(cal.ConferenceURIs, ep.URI)
				}
			}
		}
		for _, a := range ev.Attendees {
			cal.Attendees = append(cal.Attendees, models.CalendarAttendee{
				Email:          a.Email,
				DisplayName:    a.DisplayName,
				ResponseStatus: models.ResponseStatus(a.ResponseStatus),
				Self:           a.Self,
			})
		}
		doc.Calendar = cal
	}
	if p := d.People; p != nil {
		people := &models.People{}
		if p.Creator != nil {
			c := p.Creator.toModel()
			people.Creator = &c
		}
		for _, a := range p.Attendees {
			people.Attendees = append(people.Attendees, a.toModel())
		}
		doc.People = people
	}
	for _, a := range d.Attachments {
		doc.Attachments = append(doc.Attachments, models.Attachment{
			ID: a.ID, URL: a.URL, Type: a.Type, Width: a.Width, Height: a.Height,
		})
	}
	return doc
}

func (p *apiPerson) toModel() models.Person {
	return models.Person{
		Name:           p.Name,
		DisplayName:    p.DisplayName,
		Email:          p.Email,
		ResponseStatus: models.ResponseStatus(p.ResponseStatus),
		Details: models.PersonDetails{
			FullName:   p.Details.Person.Name.FullName,
			GivenName:  p.Details.Person.Name.GivenName,
			FamilyName: p.Details.Person.Name.FamilyName,
			Company:    p.Details.Company.Name,
		},
	}
}
