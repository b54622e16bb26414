// Package resource loads textures from disk into scene textures. Decoding
// happens on worker goroutines; GPU upload is left to the renderer.
package resource

import (
	"fmt"
	"path/filepath"
	"sync"

	"lumen/internal/logger"
	"lumen/pkg/scene"
)

// Store keeps decoded textures keyed by cleaned path, in load order
type Store struct {
	mu       sync.Mutex
	textures map[string]*scene.Texture
	order    []string
	log      *logger.Logger
}

func NewStore(log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewLogger("info")
	}
	return &Store{
		textures: make(map[string]*scene.Texture),
		log:      log.WithPrefix("resource"),
	}
}

// Add registers an already decoded texture under its path. A texture with
// the same path is replaced.
func (s *Store) Add(tex *scene.Texture) {
	key := filepath.Clean(tex.Path())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.textures[key]; !ok {
		s.order = append(s.order, key)
	}
	s.textures[key] = tex
}

// Get returns the texture loaded from path
func (s *Store) Get(path string) (*scene.Texture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tex, ok := s.textures[filepath.Clean(path)]
	return tex, ok
}

// LoadTexture decodes path, or returns the cached texture
func (s *Store) LoadTexture(path string) (*scene.Texture, error) {
	if tex, ok := s.Get(path); ok {
		return tex, nil
	}

	img, err := OpenImage(path)
	if err != nil {
		return nil, fmt.Errorf("load texture: %w", err)
	}
	tex, err := scene.NewTextureFromImage(path, img)
	if err != nil {
		return nil, err
	}
	s.Add(tex)
	s.log.Debugf("Loaded texture %s", path)
	return tex, nil
}

// LoadTextures decodes paths with a pool of workers. The returned slice has
// one entry per path; failed entries are nil and their error is at the
// same index in errs.
func (s *Store) LoadTextures(paths []string, workers int) (textures []*scene.Texture, errs []error) {
	if workers < 1 {
		workers = 1
	}
	textures = make([]*scene.Texture, len(paths))
	errs = make([]error, len(paths))

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				textures[idx], errs[idx] = s.LoadTexture(paths[idx])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			s.log.Warnf("Skipping %s: %v", paths[i], err)
		}
	}
	return textures, errs
}

// Remove drops the texture and frees its GPU copy
func (s *Store) Remove(path string) {
	key := filepath.Clean(path)
	s.mu.Lock()
	tex, ok := s.textures[key]
	if ok {
		delete(s.textures, key)
		for i, k := range s.order {
			if k == key {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()

	if ok {
		tex.Release()
	}
}

// Textures returns every loaded texture in load order
func (s *Store) Textures() []*scene.Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*scene.Texture, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.textures[k])
	}
	return out
}

// Len returns the number of loaded textures
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Release frees the GPU copies of all textures. CPU pixels are kept.
func (s *Store) Release() {
	for _, tex := range s.Textures() {
		tex.Release()
	}
}
