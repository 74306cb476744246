// Package linkpreview builds embed metadata for the first link in a post.
package linkpreview

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	userAgent      = "Mozilla/5.0 (compatible; LinkPreviewBot/1.0)"
	maxBodyBytes   = 1 << 20
	maxDescription = 200
)

var (
	urlPattern     = regexp.MustCompile(`(?i)https?://[-\w.]+(?::[0-9]+)?(?:/[\w/_.\-]*(?:\?[\w&=%.\-]*)?(?:#[\w.\-]*)?)?`)
	tweetPattern   = regexp.MustCompile(`(?:twitter\.com|x\.com)/\w+/status/(\d+)`)
	youtubePattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]+)`)
	imagePattern   = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)$`)
)

// Service resolves embeds, fetching generic pages over HTTP.
type Service struct {
	client *http.Client
	log    *logrus.Entry
}

func NewService(timeout time.Duration, log *logrus.Entry) *Service {
	return &Service{client: &http.Client{Timeout: timeout}, log: log}
}

// FirstURL returns the first http(s) link in text, or "".
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}

// Classify reports which embed type a URL maps to.
func Classify(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.EmbedGeneric
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch {
	case host == "twitter.com" || host == "x.com" || host == "mobile.twitter.com":
		return models.EmbedTwitter
	case host == "youtube.com" && u.Path == "/watch", host == "m.youtube.com" && u.Path == "/watch", host == "youtu.be":
		return models.EmbedYouTube
	case imagePattern.MatchString(u.Path):
		return models.EmbedImage
	}
	return models.EmbedGeneric
}

// Resolve returns the embed for the first URL in message, or nil when there
// is nothing to embed. It never fails; unreachable pages degrade to a minimal
// generic embed.
func (s *Service) Resolve(ctx context.Context, message string) *models.Embed {
	link := FirstURL(message)
	if link == "" {
		return nil
	}

	switch Classify(link) {
	case models.EmbedTwitter:
		m := tweetPattern.FindStringSubmatch(link)
		if m == nil {
			return nil
		}
		return &models.Embed{Type: models.EmbedTwitter, URL: link, ID: m[1], Data: map[string]string{"tweetId": m[1]}}
	case models.EmbedYouTube:
		m := youtubePattern.FindStringSubmatch(link)
		if m == nil {
			return nil
		}
		return &models.Embed{Type: models.EmbedYouTube, URL: link, ID: m[1], Data: map[string]string{
			"videoId":  m[1],
			"embedUrl": "https://www.youtube.com/embed/" + m[1],
		}}
	case models.EmbedImage:
		return &models.Embed{Type: models.EmbedImage, URL: link, Data: map[string]string{"imageUrl": link}}
	}

	data, err := s.fetchMetadata(ctx, link)
	if err != nil {
		s.log.WithError(err).WithField("url", link).Warn("link preview fetch failed")
		data = fallback(link)
	}
	return &models.Embed{Type: models.EmbedGeneric, URL: link, Data: data}
}

func (s *Service) fetchMetadata(ctx context.Context, link string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	title := first(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = "Link"
	}

	description := first(doc, `meta[property="og:description"]`, `meta[name="twitter:description"]`, `meta[name="description"]`)
	if r := []rune(description); len(r) > maxDescription {
		description = string(r[:maxDescription])
	}

	siteName := first(doc, `meta[property="og:site_name"]`)
	if siteName == "" {
		siteName = hostname(link)
	}

	return map[string]string{
		"title":       title,
		"description": description,
		"image":       first(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`),
		"siteName":    siteName,
		"url":         link,
	}, nil
}

// first returns the trimmed content attribute of the first selector that has one.
func first(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func fallback(link string) map[string]string {
	return map[string]string{
		"title":       "Link",
		"description": "",
		"image":       "",
		"siteName":    hostname(link),
		"url":         link,
	}
}

func hostname(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
