package artifact

import (
	"time"
)

type StatusView struct {
	RequestID    string  `json:"requestId"`
	Status       string  `json:"status"`
	ImageID      string  `json:"imageId,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
	Error        *string `json:"error,omitempty"`
}

func (r *ArtifactRequest) StatusView() StatusView {
	out := StatusView{RequestID: r.ID.String(), Status: r.Status}
	switch r.Status {
	case StatusCompleted:
		out.ImageID = r.ID.String()
		out.ImageURL = r.ImageURL
		out.ThumbnailURL = r.ThumbnailURL
	case StatusError:
		out.Error = r.Error
	}
	return out
}

type GalleryItem struct {
	ImageID      string    `json:"imageId"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	Location     string    `json:"location"`
}

// GalleryItem projects a completed record; placeName comes from its context.
func (r *ArtifactRequest) GalleryItem(placeName string) GalleryItem {
	if placeName == "" {
		placeName = "Unknown"
	}
	out := GalleryItem{
		ImageID:   r.ID.String(),
		CreatedAt: r.CreatedAt,
		Location:  placeName,
	}
	if r.ThumbnailURL != nil {
		out.ThumbnailURL = *r.ThumbnailURL
	}
	return out
}
