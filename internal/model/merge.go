package model

import (
	"fmt"
	"reflect"
	"time"

	"dario.cat/mergo"
)

// zeroTimeTransformer lets mergo fill a zero time.Time, which it would
// otherwise treat as a struct without mergeable fields.
type zeroTimeTransformer struct{}

func (zeroTimeTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf(time.Time{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && dst.Interface().(time.Time).IsZero() {
			dst.Set(src)
		}
		return nil
	}
}

// MergeTrack fills the empty fields of fresh from cached.
//
// Non-empty fields of fresh always win, so a refetch updates a cached
// record without losing what only the older payload carried. On error
// fresh is returned as it was passed in.
func MergeTrack(fresh, cached Track) (Track, error) {
	merged := fresh
	if err := mergo.Merge(&merged, cached, mergo.WithTransformers(zeroTimeTransformer{})); err != nil {
		return fresh, fmt.Errorf("merge track %d: %w", fresh.ID, err)
	}
	return merged, nil
}

// MergeAlbum fills the empty fields of fresh from cached. Tracks are taken
// from cached only when fresh has none.
func MergeAlbum(fresh, cached Album) (Album, error) {
	merged := fresh
	if err := mergo.Merge(&merged, cached, mergo.WithTransformers(zeroTimeTransformer{})); err != nil {
		return fresh, fmt.Errorf("merge album %d: %w", fresh.ID, err)
	}
	return merged, nil
}
