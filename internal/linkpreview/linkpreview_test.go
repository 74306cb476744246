package linkpreview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/socialfeed/backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *Service {
	log, _ := test.NewNullLogger()
	return NewService(time.Second, logrus.NewEntry(log))
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"https://twitter.com/jack/status/20":       models.EmbedTwitter,
		"https://x.com/jack/status/20":             models.EmbedTwitter,
		"https://www.youtube.com/watch?v=dQw4w9":   models.EmbedYouTube,
		"https://youtu.be/dQw4w9":                  models.EmbedYouTube,
		"https://cdn.example.com/cat.PNG":          models.EmbedImage,
		"https://netflix.com/title/1":              models.EmbedGeneric,
		"https://example.com/article":              models.EmbedGeneric,
		"https://www.youtube.com/channel/whatever": models.EmbedGeneric,
	}
	for link, want := range tests {
		assert.Equal(t, want, Classify(link), link)
	}
}

func TestResolveKnownProviders(t *testing.T) {
	s := newService()
	ctx := context.Background()

	e := s.Resolve(ctx, "look https://x.com/jack/status/12345 wow")
	require.NotNil(t, e)
	assert.Equal(t, models.EmbedTwitter, e.Type)
	assert.Equal(t, "12345", e.ID)

	e = s.Resolve(ctx, "https://youtu.be/abc_DEF-1")
	require.NotNil(t, e)
	assert.Equal(t, "abc_DEF-1", e.ID)
	assert.Equal(t, "https://www.youtube.com/embed/abc_DEF-1", e.Data["embedUrl"])

	e = s.Resolve(ctx, "pic https://img.example.com/a/b.jpg")
	require.NotNil(t, e)
	assert.Equal(t, models.EmbedImage, e.Type)

	assert.Nil(t, s.Resolve(ctx, "https://twitter.com/jack"))
	assert.Nil(t, s.Resolve(ctx, "no links at all"))
}

func TestResolveGenericPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<html><head>
			<title>Fallback title</title>
			<meta property="og:title" content=" Real title ">
			<meta name="description" content="About things">
			<meta name="twitter:image" content="https://img.example.com/x.png">
		</head></html>`))
	}))
	defer srv.Close()

	e := newService().Resolve(context.Background(), "read "+srv.URL+"/article")
	require.NotNil(t, e)
	assert.Equal(t, models.EmbedGeneric, e.Type)
	assert.Equal(t, "Real title", e.Data["title"])
	assert.Equal(t, "About things", e.Data["description"])
	assert.Equal(t, "https://img.example.com/x.png", e.Data["image"])
	assert.Equal(t, "127.0.0.1", e.Data["siteName"])
}

func TestResolveFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newService().Resolve(context.Background(), srv.URL+"/down")
	require.NotNil(t, e)
	assert.Equal(t, "Link", e.Data["title"])
	assert.Equal(t, "127.0.0.1", e.Data["siteName"])
}
