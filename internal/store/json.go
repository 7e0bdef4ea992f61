package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"galaxy/internal/domain"
	"galaxy/internal/util"
)

var _ Source = (*JSONSource)(nil)

// JSONSource reads a `{"data": [...]}` document from a file path or an
// http(s) URL.
type JSONSource struct {
	Location string

	// Client is used for URL locations; nil selects a client with a 30s
	// timeout.
	Client *http.Client

	// Attempts and BaseDelay control retries of transient fetch failures
	// (network errors and 5xx responses).
	Attempts  int
	BaseDelay time.Duration
}

// NewJSONSource creates a JSONSource with default retry settings.
func NewJSONSource(location string) *JSONSource {
	return &JSONSource{
		Location:  location,
		Client:    &http.Client{Timeout: 30 * time.Second},
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
	}
}

// Name implements Source.
func (s *JSONSource) Name() string { return s.Location }

// Load implements Source.
func (s *JSONSource) Load(ctx context.Context) ([]domain.RawSample, error) {
	var (
		body []byte
		err  error
	)
	if isURL(s.Location) {
		body, err = s.fetch(ctx)
	} else {
		body, err = os.ReadFile(s.Location)
		if err != nil {
			err = &LoadError{Source: s.Location, Reason: "read file", Err: err}
		}
	}
	if err != nil {
		return nil, err
	}
	return DecodeDocument(s.Location, body)
}

func (s *JSONSource) fetch(ctx context.Context) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	attempts := max(s.Attempts, 1)

	var body []byte
	err := util.Retry(ctx, attempts, s.BaseDelay, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.Location, nil)
		if err != nil {
			return util.Permanent(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return util.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, &LoadError{Source: s.Location, Reason: "fetch", Err: err}
	}
	return body, nil
}

func isURL(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

// rawRow mirrors one element of the data array. Every field is kept raw
// so a badly typed value flags the row instead of failing the document.
type rawRow struct {
	Date      json.RawMessage `json:"date"`
	Ticker    json.RawMessage `json:"ticker"`
	X         json.RawMessage `json:"x"`
	Y         json.RawMessage `json:"y"`
	Headline  json.RawMessage `json:"headline"`
	Sentiment json.RawMessage `json:"sentiment"`
}

// DecodeDocument parses a `{"data": [...]}` document. Invalid JSON
// (including trailing bytes after the document) and a missing or non-array
// data field are LoadErrors. Elements that are not objects, or whose date,
// ticker or coordinates have the wrong type, come back with Malformed set.
func DecodeDocument(source string, body []byte) ([]domain.RawSample, error) {
	var doc struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &LoadError{Source: source, Reason: "decode json", Err: err}
	}
	if len(doc.Data) == 0 || bytes.Equal(bytes.TrimSpace(doc.Data), []byte("null")) {
		return nil, &LoadError{Source: source, Reason: "missing data field"}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(doc.Data, &elems); err != nil {
		return nil, &LoadError{Source: source, Reason: "data is not an array", Err: err}
	}

	out := make([]domain.RawSample, 0, len(elems))
	for _, e := range elems {
		var r rawRow
		if err := json.Unmarshal(e, &r); err != nil {
			out = append(out, domain.RawSample{Malformed: true})
			continue
		}
		date, okDate := str(r.Date)
		ticker, okTicker := str(r.Ticker)
		x, okX := number(r.X)
		y, okY := number(r.Y)
		sent, _ := number(r.Sentiment)
		headline, _ := str(r.Headline)
		out = append(out, domain.RawSample{
			Date:      date,
			Ticker:    ticker,
			X:         x,
			Y:         y,
			Headline:  headline,
			Sentiment: sent,
			Malformed: !okX || !okY || !okDate || !okTicker || date == "" || ticker == "",
		})
	}
	return out, nil
}

// number decodes a JSON number. Strings, null and missing values are not
// numbers.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, false
	}
	return f, true
}

func str(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// EncodeDocument writes samples as a `{"data": [...]}` document.
func EncodeDocument(w io.Writer, samples []domain.RawSample) error {
	enc := json.NewEncoder(w)
	return enc.Encode(struct {
		Data []domain.RawSample `json:"data"`
	}{Data: samples})
}
