// Package feed renders listings as an RSS 2.0 document.
package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/adboard/internal/models"
	"github.com/beevik/etree"
)

// Channel describes the feed itself
type Channel struct {
	Title       string
	Link        string // public base URL of the service
	Description string
}

// BuildRSS renders ads as an RSS 2.0 channel, in the order given
func BuildRSS(ch Channel, ads []models.Ad) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")
	rss.CreateAttr("xmlns:atom", "http://www.w3.org/2005/Atom")

	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(ch.Title)
	channel.CreateElement("link").SetText(ch.Link)
	channel.CreateElement("description").SetText(ch.Description)
	self := channel.CreateElement("atom:link")
	self.CreateAttr("href", ch.Link+"/api/v1/ads/feed")
	self.CreateAttr("rel", "self")
	self.CreateAttr("type", "application/rss+xml")
	if len(ads) > 0 {
		channel.CreateElement("lastBuildDate").SetText(ads[0].CreatedAt.UTC().Format(time.RFC1123Z))
	}

	for _, ad := range ads {
		link := fmt.Sprintf("%s/api/v1/ads/%s", ch.Link, ad.ID)

		item := channel.CreateElement("item")
		item.CreateElement("title").SetText(fmt.Sprintf("%s - %s", ad.Title, ad.Price))
		item.CreateElement("link").SetText(link)
		guid := item.CreateElement("guid")
		guid.CreateAttr("isPermaLink", "false")
		guid.SetText(ad.ID)
		desc := ad.Description
		if len(ad.Location) > 0 {
			desc += " (" + strings.Join(ad.Location, ", ") + ")"
		}
		item.CreateElement("description").SetText(desc)
		for _, c := range ad.Category {
			item.CreateElement("category").SetText(c)
		}
		if ad.Image != "" {
			enc := item.CreateElement("enclosure")
			enc.CreateAttr("url", absolute(ch.Link, ad.Image))
			enc.CreateAttr("type", "image/*")
			enc.CreateAttr("length", "0")
		}
		item.CreateElement("pubDate").SetText(ad.CreatedAt.UTC().Format(time.RFC1123Z))
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render feed: %w", err)
	}
	return out, nil
}

// absolute resolves a stored path such as /uploads/x.png against base;
// full URLs (object storage) are returned unchanged.
func absolute(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return base + path
}
