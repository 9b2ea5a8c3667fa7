package posts

import (
	"context"
	"sort"
)

// Record is a content post as persisted and served at the API boundary.
// Exactly one of ImageURL (external) or ImagePath (local upload, relative
// to the upload root) is normally set, though both may coexist.
type Record struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	SubTitle    string `json:"subTitle,omitempty"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImagePath   string `json:"imagePath,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// Summary is the listing shape: a post reduced to what the index page needs.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Input holds the fields accepted when creating a post. Presence of the
// required fields (title, description) is validated by the HTTP layer.
type Input struct {
	Title       string
	SubTitle    string
	Description string
	ImageURL    string
	ImagePath   string
}

// Update carries a partial edit. Nil fields are left untouched; there is no
// way to unset an image at this level.
type Update struct {
	Title       *string
	SubTitle    *string
	Description *string
	ImageURL    *string
	ImagePath   *string
}

// Store is the abstraction over posts persistence backends.
type Store interface {
	Create(ctx context.Context, in Input) (Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, id string, upd Update) (*Record, error)
	Delete(ctx context.Context, id string) (*Record, error)
	ListSummary(ctx context.Context) ([]Summary, error)
}

// UploadRoute is the HTTP route prefix uploaded files are served under.
const UploadRoute = "/uploads/"

func (r Record) summary() Summary {
	image := r.ImageURL
	if image == "" && r.ImagePath != "" {
		image = UploadRoute + r.ImagePath
	}
	return Summary{ID: r.ID, Title: r.Title, Image: image, Timestamp: r.CreatedAt}
}

func (r Record) applied(upd Update) Record {
	if upd.Title != nil {
		r.Title = *upd.Title
	}
	if upd.SubTitle != nil {
		r.SubTitle = *upd.SubTitle
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.ImageURL != nil {
		r.ImageURL = *upd.ImageURL
	}
	if upd.ImagePath != nil {
		r.ImagePath = *upd.ImagePath
	}
	return r
}

// sortSummaries orders newest first. Timestamps are fixed-width ISO-8601,
// so string comparison matches chronological order.
func sortSummaries(list []Summary) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp > list[j].Timestamp
	})
}
