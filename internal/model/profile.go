// Package model defines the data structures used throughout the application.
package model

import "time"

const (
	// DefaultBio is written into every freshly registered profile.
	DefaultBio = "よろしくお願いします！"

	MaxGalleryImages = 6
)

// SocialLinks holds the handles of the fixed set of social networks a
// profile can point at. Empty means "not set".
type SocialLinks struct {
	Instagram string `json:"instagram"`
	Twitter   string `json:"twitter"`
	TikTok    string `json:"tiktok"`
}

// Profile is the public record behind a LIVME account.
//
// ID is the internal, immutable key (the identity that owns the row).
// Handle is the user-chosen, unique and mutable user_id shown in URLs.
type Profile struct {
	ID        string      `json:"id"`
	Handle    string      `json:"user_id"`
	Name      string      `json:"name"`
	Bio       string      `json:"bio"`
	Link      string      `json:"link"`
	Avatar    string      `json:"avatar_url"` // URL or data: URL
	Gallery   []string    `json:"gallery_images"`
	Social    SocialLinks `json:"social_links"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Update returns the mutable subset of p. Saving it back unchanged is a no-op.
func (p *Profile) Update() ProfileUpdate {
	gallery := make([]string, len(p.Gallery))
	copy(gallery, p.Gallery)
	return ProfileUpdate{
		Handle:  p.Handle,
		Name:    p.Name,
		Bio:     p.Bio,
		Link:    p.Link,
		Avatar:  p.Avatar,
		Gallery: gallery,
		Social:  p.Social,
	}
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Gallery = make([]string, len(p.Gallery))
	copy(c.Gallery, p.Gallery)
	return &c
}

// ProfileUpdate is the whole mutable subset of a Profile. A save always sends
// every field, so the stored row is replaced as one unit.
type ProfileUpdate struct {
	Handle  string      `json:"user_id"`
	Name    string      `json:"name"`
	Bio     string      `json:"bio"`
	Link    string      `json:"link"`
	Avatar  string      `json:"avatar_url"`
	Gallery []string    `json:"gallery_images"`
	Social  SocialLinks `json:"social_links"`
}

// Apply copies u onto p, leaving ID and timestamps alone.
func (u ProfileUpdate) Apply(p *Profile) {
	p.Handle = u.Handle
	p.Name = u.Name
	p.Bio = u.Bio
	p.Link = u.Link
	p.Avatar = u.Avatar
	p.Gallery = make([]string, len(u.Gallery))
	copy(p.Gallery, u.Gallery)
	p.Social = u.Social
}

// ProfileStats is a profile together with its follow counts, as shown on a
// public profile page.
type ProfileStats struct {
	Profile
	Followers int `json:"followers"`
	Following int `json:"following"`
}
