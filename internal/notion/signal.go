package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Status drives the signal lifecycle. A record is created New, then moved
// exactly once to Done or Parked by the enrichment run.
type Status string

const (
	StatusNew    Status = "New"
	StatusDone   Status = "Done"
	StatusParked Status = "Parked"
)

// Defaults applied when the capture client omits descriptive metadata.
const (
	DefaultTitle      = "Untitled"
	DefaultURL        = "https://example.com"
	DefaultIntentNote = "No note provided"
)

// Fields is the property set persisted at capture time.
type Fields struct {
	Title         string
	URL           string
	Intent        string
	IntentNote    string
	ContentLength int
}

// Update is a partial property patch. Nil members are left untouched in the
// store, which keeps the success and failure paths on the same call.
type Update struct {
	Summary        *string
	Status         *Status
	NextBestAction *string
	Priority       *string
}

// Record is the current state of a stored signal.
type Record struct {
	ID             string
	Title          string
	URL            string
	Intent         string
	IntentNote     string
	Status         Status
	Summary        string
	NextBestAction string
	Priority       string
	ContentLength  int
	LastEdited     time.Time
}

type richText struct {
	Type string `json:"type,omitempty"`
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
	PlainText string `json:"plain_text,omitempty"`
}

func newRichText(content string) []richText {
	rt := richText{Type: "text"}
	rt.Text.Content = content
	return []richText{rt}
}

type selectValue struct {
	Name string `json:"name"`
}

// property covers every value shape this adapter reads or writes.
type property struct {
	Type     string       `json:"type,omitempty"`
	Title    []richText   `json:"title,omitempty"`
	RichText []richText   `json:"rich_text,omitempty"`
	URL      *string      `json:"url,omitempty"`
	Number   *float64     `json:"number,omitempty"`
	Select   *selectValue `json:"select,omitempty"`
}

type paragraphBlock struct {
	Object    string `json:"object"`
	Type      string `json:"type"`
	Paragraph struct {
		RichText []richText `json:"rich_text"`
	} `json:"paragraph"`
}

func newParagraph(text string) paragraphBlock {
	b := paragraphBlock{Object: "block", Type: "paragraph"}
	b.Paragraph.RichText = newRichText(text)
	return b
}

// CreateSignal persists a new record with status New and the content attached
// as ordered paragraph fragments. Missing metadata gets the documented
// defaults rather than a rejection. Returns the store-assigned id.
func (c *Client) CreateSignal(ctx context.Context, fields Fields, fragments []string) (string, error) {
	titleProp, err := c.TitleProperty(ctx)
	if err != nil {
		return "", err
	}

	if fields.Title == "" {
		fields.Title = DefaultTitle
	}
	if fields.URL == "" {
		fields.URL = DefaultURL
	}
	if fields.IntentNote == "" {
		fields.IntentNote = DefaultIntentNote
	}

	length := float64(fields.ContentLength)
	props := map[string]property{
		titleProp:        {Title: newRichText(fields.Title)},
		"Source URL":     {URL: &fields.URL},
		"Intent":         {Select: &selectValue{Name: fields.Intent}},
		"Intent Note":    {RichText: newRichText(fields.IntentNote)},
		"Status":         {Select: &selectValue{Name: string(StatusNew)}},
		"Content Length": {Number: &length},
	}

	children := make([]paragraphBlock, 0, len(fragments))
	for _, frag := range fragments {
		children = append(children, newParagraph(frag))
	}

	payload := map[string]any{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": props,
	}
	if len(children) > 0 {
		payload["children"] = children
	}

	body, err := c.do(ctx, http.MethodPost, "/v1/pages", payload)
	if err != nil {
		return "", fmt.Errorf("create signal: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("parse create response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("store returned no id for created signal")
	}

	c.logger.Info("signal created", "id", created.ID, "intent", fields.Intent, "fragments", len(fragments))
	return created.ID, nil
}

// UpdateSignal patches the given properties on an existing record.
func (c *Client) UpdateSignal(ctx context.Context, id string, upd Update) error {
	props := map[string]property{}
	if upd.Summary != nil {
		props["AI Summary"] = property{RichText: newRichText(*upd.Summary)}
	}
	if upd.Status != nil {
		props["Status"] = property{Select: &selectValue{Name: string(*upd.Status)}}
	}
	if upd.NextBestAction != nil {
		props["Next Best Action"] = property{RichText: newRichText(*upd.NextBestAction)}
	}
	if upd.Priority != nil {
		props["Priority"] = property{Select: &selectValue{Name: *upd.Priority}}
	}
	if len(props) == 0 {
		return nil
	}

	if _, err := c.do(ctx, http.MethodPatch, "/v1/pages/"+id, map[string]any{"properties": props}); err != nil {
		return fmt.Errorf("update signal %s: %w", id, err)
	}
	return nil
}

// RetrieveSignal fetches the current property values of a record.
func (c *Client) RetrieveSignal(ctx context.Context, id string) (*Record, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/pages/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieve signal %s: %w", id, err)
	}

	var page struct {
		ID             string              `json:"id"`
		LastEditedTime time.Time           `json:"last_edited_time"`
		Properties     map[string]property `json:"properties"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parse signal %s: %w", id, err)
	}

	rec := &Record{ID: page.ID, LastEdited: page.LastEditedTime}
	for name, p := range page.Properties {
		switch {
		case p.Type == "title":
			rec.Title = plainText(p.Title)
		case name == "Source URL" && p.URL != nil:
			rec.URL = *p.URL
		case name == "Intent" && p.Select != nil:
			rec.Intent = p.Select.Name
		case name == "Intent Note":
			rec.IntentNote = plainText(p.RichText)
		case name == "Status" && p.Select != nil:
			rec.Status = Status(p.Select.Name)
		case name == "AI Summary":
			rec.Summary = plainText(p.RichText)
		case name == "Next Best Action":
			rec.NextBestAction = plainText(p.RichText)
		case name == "Priority" && p.Select != nil:
			rec.Priority = p.Select.Name
		case name == "Content Length" && p.Number != nil:
			rec.ContentLength = int(*p.Number)
		}
	}
	return rec, nil
}

// RetrieveContent reassembles a signal's stored content from its paragraph
// fragments, for the regeneration path. The children listing is paginated at
// 100 blocks per call, so the fetch follows next_cursor until the store
// reports no more.
func (c *Client) RetrieveContent(ctx context.Context, id string) (string, error) {
	var content string
	cursor := ""
	for {
		path := "/v1/blocks/" + id + "/children?page_size=100"
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}
		body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return "", fmt.Errorf("retrieve content %s: %w", id, err)
		}

		var page struct {
			Results []struct {
				Type      string `json:"type"`
				Paragraph struct {
					RichText []richText `json:"rich_text"`
				} `json:"paragraph"`
			} `json:"results"`
			HasMore    bool   `json:"has_more"`
			NextCursor string `json:"next_cursor"`
		}
		if err := json.Unmarshal(body, &page); err != nil {
			return "", fmt.Errorf("parse content %s: %w", id, err)
		}

		for _, block := range page.Results {
			if block.Type != "paragraph" {
				continue
			}
			content += plainText(block.Paragraph.RichText)
		}

		if !page.HasMore || page.NextCursor == "" {
			return content, nil
		}
		cursor = page.NextCursor
	}
}

func plainText(rt []richText) string {
	var s string
	for _, r := range rt {
		if r.PlainText != "" {
			s += r.PlainText
		} else {
			s += r.Text.Content
		}
	}
	return s
}
