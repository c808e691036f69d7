package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/erazemk/galerija/internal/client"
	"github.com/erazemk/galerija/internal/imaging"
	"github.com/erazemk/galerija/internal/model"
)

// Catalog is the art-picture store. Reads are open to everyone; mutations
// are admin operations and go over multipart to carry the image attachment.
type Catalog struct {
	c *client.Client

	mu sync.Mutex
	tracker
	listSeq  uint64
	itemSeq  uint64
	pictures []model.ArtPicture
	current  *model.ArtPicture
}

// NewCatalog creates the catalog store.
func NewCatalog(c *client.Client) *Catalog {
	return &Catalog{c: c}
}

// FetchAll loads the full catalog. Stale responses are dropped.
func (s *Catalog) FetchAll(ctx context.Context) error {
	s.mu.Lock()
	s.pend()
	s.listSeq++
	ticket := s.listSeq
	s.mu.Unlock()

	var pictures []model.ArtPicture
	err := s.c.Get(ctx, "/api/art-pictures/", &pictures)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.listSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching catalog: %w", err)
	}
	s.fulfill()
	s.pictures = pictures
	return nil
}

// FetchByID loads one picture into the current slot.
func (s *Catalog) FetchByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.pend()
	s.itemSeq++
	ticket := s.itemSeq
	s.mu.Unlock()

	var pic model.ArtPicture
	err := s.c.Get(ctx, fmt.Sprintf("/api/art-pictures/%d/", id), &pic)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.itemSeq {
		return nil
	}
	if err != nil {
		s.reject(err)
		return fmt.Errorf("fetching art picture %d: %w", id, err)
	}
	s.fulfill()
	s.current = &pic
	return nil
}

// ArtInput is the admin create/update form. Image is optional and should
// already have been run through imaging.PrepareUpload.
type ArtInput struct {
	Title       string
	Description string
	Price       float64
	IsAvailable bool
	Image       *imaging.Upload
}

func (in ArtInput) fields() map[string]string {
	return map[string]string{
		"title":        in.Title,
		"description":  in.Description,
		"price":        strconv.FormatFloat(in.Price, 'f', 2, 64),
		"is_available": strconv.FormatBool(in.IsAvailable),
	}
}

func (in ArtInput) file() *client.FormFile {
	if in.Image == nil {
		return nil
	}
	return &client.FormFile{Field: "image", Filename: in.Image.Filename, Data: in.Image.Data}
}

// Create posts a new picture and appends the server's representation.
func (s *Catalog) Create(ctx context.Context, input ArtInput) (*model.ArtPicture, error) {
	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	var created model.ArtPicture
	err := s.c.PostForm(ctx, "/api/art-pictures/", input.fields(), input.file(), &created)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.reject(err)
		return nil, fmt.Errorf("creating art picture: %w", err)
	}
	s.fulfill()
	s.pictures = append(s.pictures, created)
	return &created, nil
}

// Update patches a picture and replaces the matching entry by id.
func (s *Catalog) Update(ctx context.Context, id int64, input ArtInput) (*model.ArtPicture, error) {
	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	var updated model.ArtPicture
	err := s.c.PatchForm(ctx, fmt.Sprintf("/api/art-pictures/%d/", id), input.fields(), input.file(), &updated)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.reject(err)
		return nil, fmt.Errorf("updating art picture %d: %w", id, err)
	}
	s.fulfill()
	for i := range s.pictures {
		if s.pictures[i].ID == updated.ID {
			s.pictures[i] = updated
			break
		}
	}
	if s.current != nil && s.current.ID == updated.ID {
		s.current = &updated
	}
	return &updated, nil
}

// Delete removes a picture and filters it from the collection.
func (s *Catalog) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.pend()
	s.mu.Unlock()

	err := s.c.Delete(ctx, fmt.Sprintf("/api/art-pictures/%d/", id))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.reject(err)
		return fmt.Errorf("deleting art picture %d: %w", id, err)
	}
	s.fulfill()
	kept := s.pictures[:0]
	for _, pic := range s.pictures {
		if pic.ID != id {
			kept = append(kept, pic)
		}
	}
	s.pictures = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	return nil
}

// Pictures returns a copy of the catalog collection.
func (s *Catalog) Pictures() []model.ArtPicture {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ArtPicture, len(s.pictures))
	copy(out, s.pictures)
	return out
}

// Current returns the current picture, or nil.
func (s *Catalog) Current() *model.ArtPicture {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	pic := *s.current
	return &pic
}

// ClearCurrent drops the current-picture slot.
func (s *Catalog) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Loading reports whether an operation is in flight.
func (s *Catalog) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the stored error, unflattened.
func (s *Catalog) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
