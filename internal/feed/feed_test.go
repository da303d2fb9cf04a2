package feed

import (
	"testing"
	"time"

	"github.com/Dan9191/adboard/internal/models"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/require"
)

func TestBuildRSS(t *testing.T) {
	created := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	ads := []models.Ad{
		{
			ID: "01B", Title: "Bike", Description: "Red bike", Price: "100",
			Location: []string{"Tashkent", "Samarkand"}, Category: []string{"sport", "transport"},
			Image: "/uploads/image-1.png", CreatedAt: created,
		},
		{
			ID: "01A", Title: "Desk <oak>", Description: "Old & sturdy", Price: "50",
			Image: "https://cdn.example.com/ads/image-2.jpg", CreatedAt: created.Add(-time.Hour),
		},
	}

	out, err := BuildRSS(Channel{Title: "Adboard", Link: "http://localhost:8080", Description: "Latest ads"}, ads)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	rss := doc.SelectElement("rss")
	require.NotNil(t, rss)
	require.Equal(t, "2.0", rss.SelectAttrValue("version", ""))

	items := doc.FindElements("//channel/item")
	require.Len(t, items, 2)

	first := items[0]
	require.Equal(t, "Bike - 100", first.SelectElement("title").Text())
	require.Equal(t, "http://localhost:8080/api/v1/ads/01B", first.SelectElement("link").Text())
	require.Equal(t, "Red bike (Tashkent, Samarkand)", first.SelectElement("description").Text())
	require.Len(t, first.SelectElements("category"), 2)
	require.Equal(t, "http://localhost:8080/uploads/image-1.png",
		first.SelectElement("enclosure").SelectAttrValue("url", ""))
	require.Equal(t, created.Format(time.RFC1123Z), first.SelectElement("pubDate").Text())

	second := items[1]
	require.Equal(t, "Desk <oak> - 50", second.SelectElement("title").Text())
	require.Equal(t, "Old & sturdy", second.SelectElement("description").Text())
	require.Equal(t, "https://cdn.example.com/ads/image-2.jpg",
		second.SelectElement("enclosure").SelectAttrValue("url", ""))
}

func TestBuildRSS_Empty(t *testing.T) {
	out, err := BuildRSS(Channel{Title: "Adboard", Link: "http://x"}, nil)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	require.Empty(t, doc.FindElements("//channel/item"))
	require.Nil(t, doc.FindElement("//channel/lastBuildDate"))
}
