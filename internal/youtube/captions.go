package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tubequiz/internal/domain"
)

const defaultCaptionBaseURL = "https://video.google.com"

// CaptionClient retrieves platform-hosted caption tracks via the timedtext API.
type CaptionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCaptionClient builds a client against the live timedtext endpoint.
// baseURL may be overridden (tests point it at an httptest server).
func NewCaptionClient(baseURL string) *CaptionClient {
	if baseURL == "" {
		baseURL = defaultCaptionBaseURL
	}
	return &CaptionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type trackList struct {
	Tracks []captionTrack `xml:"track"`
}

type captionTrack struct {
	LangCode string `xml:"lang_code,attr"`
	Name     string `xml:"name,attr"`
	Default  string `xml:"lang_default,attr"`
}

type captionBody struct {
	Lines []captionLine `xml:"text"`
}

type captionLine struct {
	Text string `xml:",chardata"`
}

// Fetch returns the video's caption transcript. A video without any usable
// track yields domain.ErrNoCaptions; transport and rate-limit problems come
// back as distinguishable wrapped errors so the caller can retry.
func (c *CaptionClient) Fetch(ctx context.Context, ref domain.VideoRef) (domain.Transcript, error) {
	tracks, err := c.listTracks(ctx, ref)
	if err != nil {
		return domain.Transcript{}, err
	}
	if len(tracks) == 0 {
		return domain.Transcript{}, fmt.Errorf("%w: video %s", domain.ErrNoCaptions, ref.ID)
	}

	track := pickTrack(tracks)
	text, err := c.fetchTrack(ctx, ref, track)
	if err != nil {
		return domain.Transcript{}, err
	}
	if text == "" {
		return domain.Transcript{}, fmt.Errorf("%w: empty track for video %s", domain.ErrNoCaptions, ref.ID)
	}
	return domain.Transcript{Text: text, Source: domain.TranscriptDirect}, nil
}

func (c *CaptionClient) listTracks(ctx context.Context, ref domain.VideoRef) ([]captionTrack, error) {
	q := url.Values{}
	q.Set("type", "list")
	q.Set("v", ref.ID)

	body, status, err := c.get(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list caption tracks: %w", err)
	}
	switch {
	case status == http.StatusOK:
		// fall through to parse
	case status == http.StatusNotFound || status == http.StatusForbidden:
		// Unknown, removed, or restricted videos: expected no-transcript branch.
		return nil, fmt.Errorf("%w: video %s (status %d)", domain.ErrNoCaptions, ref.ID, status)
	default:
		return nil, fmt.Errorf("list caption tracks: unexpected status %d", status)
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("parse caption track list: %w", err)
	}
	return list.Tracks, nil
}

func (c *CaptionClient) fetchTrack(ctx context.Context, ref domain.VideoRef, track captionTrack) (string, error) {
	q := url.Values{}
	q.Set("v", ref.ID)
	q.Set("lang", track.LangCode)
	if track.Name != "" {
		q.Set("name", track.Name)
	}

	body, status, err := c.get(ctx, q)
	if err != nil {
		return "", fmt.Errorf("fetch caption track: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("fetch caption track: unexpected status %d", status)
	}

	var parsed captionBody
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse caption track: %w", err)
	}

	parts := make([]string, 0, len(parsed.Lines))
	for _, line := range parsed.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (c *CaptionClient) get(ctx context.Context, q url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/timedtext?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// pickTrack prefers the track flagged as the video's default language.
func pickTrack(tracks []captionTrack) captionTrack {
	for _, t := range tracks {
		if t.Default == "true" {
			return t
		}
	}
	return tracks[0]
}
