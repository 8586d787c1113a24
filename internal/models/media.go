// Package models contains the data structures used throughout the application.
package models

// ItemKind classifies a search result returned by the extraction layer.
type ItemKind string

const (
	// KindStream is a single playable audio/video entry.
	KindStream ItemKind = "stream"
	// KindPlaylist is a playlist aggregate.
	KindPlaylist ItemKind = "playlist"
	// KindChannel is a channel aggregate.
	KindChannel ItemKind = "channel"
)

// Thumbnail is an image reference attached to a search item.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// SearchItem is a raw metadata item as produced by an extraction client.
type SearchItem struct {
	// Kind distinguishes track-type items from aggregates.
	Kind ItemKind `json:"kind"`

	// URL is the canonical URL of the item (e.g. a watch URL for streams).
	URL string `json:"url"`

	// Name is the display title.
	Name string `json:"name"`

	// UploaderName is the name of the channel that published the item.
	UploaderName string `json:"uploaderName"`

	// Thumbnails in the order the extractor reported them.
	Thumbnails []Thumbnail `json:"thumbnails,omitempty"`
}

// IsTrack reports whether the item represents a single playable entry.
func (i SearchItem) IsTrack() bool {
	return i.Kind == KindStream
}

// StreamDescriptor describes one stream variant of a video.
type StreamDescriptor struct {
	// AverageBitrate as reported by the extractor, 0 when unknown.
	AverageBitrate int `json:"averageBitrate"`

	// URL is the direct stream URL, if any.
	URL string `json:"url,omitempty"`

	// Content is inline content (e.g. a manifest) used when no URL is exposed.
	Content string `json:"content,omitempty"`

	// MimeType as reported by the extractor.
	MimeType string `json:"mimeType,omitempty"`
}

// Location returns the URL of the stream, falling back to its inline content.
func (d StreamDescriptor) Location() string {
	if d.URL != "" {
		return d.URL
	}
	return d.Content
}

// StreamSet holds the stream descriptors of a single video.
type StreamSet struct {
	AudioStreams []StreamDescriptor `json:"audioStreams"`
	VideoStreams []StreamDescriptor `json:"videoStreams"`
}

// TrackRecord is the normalized shape of a playable item returned to callers.
type TrackRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	ThumbnailURL string `json:"thumbnailUrl"`

	// Views is only populated for channel listings, where it is a placeholder.
	Views string `json:"views,omitempty"`
}

// ChannelRecord is the normalized shape of a channel listing.
type ChannelRecord struct {
	Name            string        `json:"name"`
	SubscriberCount string        `json:"subscriberCount"`
	AvatarURL       string        `json:"avatarUrl"`
	Videos          []TrackRecord `json:"videos"`
}

// StreamResolution is the best audio stream selected for a video.
type StreamResolution struct {
	URL string `json:"url"`
}
