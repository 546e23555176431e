// ABOUTME: Per-channel artwork store fed by binary artwork frames
// ABOUTME: Keeps the newest image per channel and caches payloads on disk
package artwork

import (
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/Unison-Protocol/unison-go/pkg/protocol"
)

// Image is the current artwork for one channel. Path points at the cached
// file when the payload could be written to disk.
type Image struct {
	Channel   int
	Timestamp int64
	Path      string
	Data      []byte
}

// Store holds the latest image for each artwork channel. Frames apply in
// timestamp order per channel; older or repeated frames are dropped.
type Store struct {
	mu       sync.RWMutex
	cacheDir string
	slots    [protocol.ArtworkChannels]*Image
	onUpdate func(Image)
}

// NewStore creates an artwork store. onUpdate, if non-nil, is called after
// every applied frame, including clears.
func NewStore(onUpdate func(Image)) (*Store, error) {
	cacheDir := filepath.Join(os.TempDir(), "unison-artwork")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Store{
		cacheDir: cacheDir,
		onUpdate: onUpdate,
	}, nil
}

// Apply takes a decoded binary frame and updates the matching channel slot.
// It reports whether the frame changed anything. Non-artwork frames and
// frames not newer than the slot's current image are ignored.
func (s *Store) Apply(frame protocol.BinaryFrame) bool {
	if frame.Kind != protocol.FrameArtwork {
		return false
	}
	if frame.Channel < 0 || frame.Channel >= protocol.ArtworkChannels {
		return false
	}

	s.mu.Lock()

	cur := s.slots[frame.Channel]
	if cur != nil && frame.Timestamp <= cur.Timestamp {
		s.mu.Unlock()
		log.Printf("Ignoring stale artwork for channel %d: %dμs is not newer than %dμs",
			frame.Channel, frame.Timestamp, cur.Timestamp)
		return false
	}

	var img Image
	if len(frame.Payload) == 0 {
		// An empty payload clears the channel
		s.slots[frame.Channel] = nil
		img = Image{Channel: frame.Channel, Timestamp: frame.Timestamp}
		log.Printf("Artwork channel %d cleared", frame.Channel)
	} else {
		path := s.cachePath(frame.Payload)
		if err := writeCacheFile(path, frame.Payload); err != nil {
			log.Printf("Failed to cache artwork for channel %d: %v", frame.Channel, err)
			path = ""
		}

		img = Image{
			Channel:   frame.Channel,
			Timestamp: frame.Timestamp,
			Path:      path,
			Data:      frame.Payload,
		}
		s.slots[frame.Channel] = &img
	}

	cb := s.onUpdate
	s.mu.Unlock()

	if cb != nil {
		cb(img)
	}
	return true
}

// Current returns the latest image for a channel.
func (s *Store) Current(channel int) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if channel < 0 || channel >= protocol.ArtworkChannels {
		return Image{}, false
	}
	img := s.slots[channel]
	if img == nil {
		return Image{}, false
	}
	return *img, true
}

// Clear drops all channel slots. Cached files stay on disk for reuse.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.slots {
		s.slots[i] = nil
	}
}

// Cleanup removes the on-disk artwork cache.
func (s *Store) Cleanup() error {
	return os.RemoveAll(s.cacheDir)
}

// cachePath names the cache file by content hash so repeated payloads
// land on the same file.
func (s *Store) cachePath(payload []byte) string {
	hash := sha256.Sum256(payload)
	filename := fmt.Sprintf("%x%s", hash[:8], sniffExtension(payload))
	return filepath.Join(s.cacheDir, filename)
}

func writeCacheFile(path string, payload []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, payload, 0644)
}

// sniffExtension picks a file extension from the payload's magic bytes.
func sniffExtension(payload []byte) string {
	switch {
	case len(payload) >= 2 && payload[0] == 0xFF && payload[1] == 0xD8:
		return ".jpg"
	case len(payload) >= 4 && payload[0] == 0x89 && payload[1] == 'P' && payload[2] == 'N' && payload[3] == 'G':
		return ".png"
	case len(payload) >= 2 && payload[0] == 'B' && payload[1] == 'M':
		return ".bmp"
	default:
		return ".img"
	}
}
