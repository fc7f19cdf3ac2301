// Package metadata resolves track metadata for a source video when the
// caller did not supply it or the catalog search found nothing.
//
// Three lookups are layered: URL parsing (VideoID), the oEmbed endpoint
// (OEmbedClient), and watch-page meta tags read with goquery (PageScraper).
// FallbackSource combines them into the fallback metadata used by jobs.
package metadata
