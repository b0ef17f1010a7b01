// Package file describes uploaded files as kept in the blob store.
package file

import (
	"strings"
	"time"
)

// Object is a stored blob as listed under a prefix.
type Object struct {
	Path     string
	Size     int64
	Modified time.Time
}

// Info is a tenant's file as presented to callers.
type Info struct {
	Name        string
	StoragePath string
	Size        int64
	Modified    time.Time
}

// InfoFromObject strips the tenant prefix from the object path.
func InfoFromObject(tenantPrefix string, o Object) Info {
	return Info{
		Name:        strings.TrimPrefix(o.Path, tenantPrefix),
		StoragePath: o.Path,
		Size:        o.Size,
		Modified:    o.Modified,
	}
}
