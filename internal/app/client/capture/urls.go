package capture

import (
	"sync"

	"github.com/google/uuid"

	"hypercase/internal/domain/recording"
)

const objectURLPrefix = "blob:hypercase/"

// ObjectURLs выдает адреса для воспроизведения блобов в памяти.
// Каждый Create должен быть парным Revoke.
type ObjectURLs struct {
	mu    sync.Mutex
	blobs map[string]*recording.Blob
}

func NewObjectURLs() *ObjectURLs {
	return &ObjectURLs{blobs: make(map[string]*recording.Blob)}
}

func (u *ObjectURLs) Create(blob *recording.Blob) string {
	url := objectURLPrefix + uuid.NewString()

	u.mu.Lock()
	u.blobs[url] = blob
	u.mu.Unlock()

	return url
}

func (u *ObjectURLs) Resolve(url string) (*recording.Blob, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	blob, ok := u.blobs[url]
	return blob, ok
}

func (u *ObjectURLs) Revoke(url string) {
	u.mu.Lock()
	delete(u.blobs, url)
	u.mu.Unlock()
}

// Len - число неотозванных адресов.
func (u *ObjectURLs) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.blobs)
}
