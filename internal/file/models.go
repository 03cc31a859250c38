package file

import "time"

// Record describes one stored file. The storage key is the only public
// handle; the original name is display-only and never touches storage
// paths.
type Record struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"original_name"`
	StorageKey   string    `json:"storage_key"`
	Owner        string    `json:"-"`
	Password     *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanAccess reports whether a download may proceed. Downloads are
// public by identifier; a password only gates them once set.
func (r Record) CanAccess(suppliedPassword string) bool {
	return r.Password == nil || *r.Password == suppliedPassword
}
