// Package docstore is the client side of a schemaless document database
// offering per-collection live subscriptions and point writes.
package docstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrInvalidPath is returned for malformed collection or document paths
var ErrInvalidPath = errors.New("docstore: invalid path")

// Document is one stored record. ID, CreateTime and UpdateTime are assigned
// by the store.
type Document struct {
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
	CreateTime time.Time      `json:"createTime"`
	UpdateTime time.Time      `json:"updateTime"`
}

// SnapshotFunc receives the full contents of a collection
type SnapshotFunc func(docs []Document)

// ErrorFunc receives subscription failures
type ErrorFunc func(err error)

// Client is the contract every document store backend fulfils.
//
// Subscribe delivers the current state immediately and again after every
// change; snapshots for one subscription are delivered in order from a
// single goroutine, and intermediate states may be coalesced. The returned
// function cancels the subscription.
//
// Write upserts a document, merging the given fields over any stored ones.
type Client interface {
	Subscribe(ctx context.Context, collection string, onSnapshot SnapshotFunc, onError ErrorFunc) (unsubscribe func())
	Write(ctx context.Context, collection, id string, record map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]Document, error)
}

// ValidCollection reports whether path names a collection: a non-empty,
// slash-separated path with an odd number of segments.
func ValidCollection(path string) bool {
	segs := strings.Split(path, "/")
	if len(segs)%2 == 0 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// ValidID reports whether id can name a document
func ValidID(id string) bool {
	return id != "" && !strings.Contains(id, "/")
}

// UserCollection returns the path of a per-user sub-collection
func UserCollection(userID, name string) string {
	return "users/" + userID + "/" + name
}

func checkPath(collection, id string) error {
	if !ValidCollection(collection) || !ValidID(id) {
		return ErrInvalidPath
	}
	return nil
}

// merge returns a copy of base with every field of patch laid over it
func merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		d.Data = merge(d.Data, nil)
		out[i] = d
	}
	return out
}
