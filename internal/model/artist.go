package model

import "errors"

// ErrAmbiguousIdentity is returned by Artist.Validate when both a band id
// and a fan id are set.
var ErrAmbiguousIdentity = errors.New("artist has both band and fan identity")

// Artist is either a Bandcamp band (an artist or label) or a fan account.
//
// Exactly one of BandID and FanID identifies the record. Use NewBand or
// NewFan to build one; IsFan tells them apart.
type Artist struct {
	BandID int64 `json:"band_id,omitempty"`
	FanID  int64 `json:"fan_id,omitempty"`

	Name string `json:"name,omitempty"`

	// Handle is the band subdomain or the fan username.
	Handle string `json:"handle,omitempty"`

	URL        string `json:"url,omitempty"`
	ImageID    int64  `json:"image_id,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	Location   string `json:"location,omitempty"`
	Bio        string `json:"bio,omitempty"`
	OffsiteURL string `json:"offsite_url,omitempty"`
}

// NewBand returns a band record.
func NewBand(id int64, name string) Artist {
	return Artist{BandID: id, Name: name}
}

// NewFan returns a fan record.
func NewFan(id int64, name string) Artist {
	return Artist{FanID: id, Name: name}
}

// IsFan reports whether a identifies a fan account.
func (a Artist) IsFan() bool {
	return a.FanID != 0 && a.BandID == 0
}

// Validate checks the band/fan identity is not ambiguous.
func (a Artist) Validate() error {
	if a.BandID != 0 && a.FanID != 0 {
		return ErrAmbiguousIdentity
	}
	return nil
}
