package props

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"props-bible/core/labels"
	"props-bible/core/objectstore"
	"props-bible/core/store"
	"props-bible/core/subscription"
	"props-bible/core/utils"
)

type Store interface {
	List(ctx context.Context, filter Filter) ([]Prop, int, error)
	Get(ctx context.Context, id int64) (*Prop, error)
	Create(ctx context.Context, p *Prop) (int64, error)
	Update(ctx context.Context, p *Prop) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, from, to Status, note string, actor int64) error
	History(ctx context.Context, propID int64) ([]StatusChange, error)
	SetImages(ctx context.Context, id int64, images []Image) error
	Categories(ctx context.Context, showID int64) ([]string, error)
	CountByStatus(ctx context.Context, showID int64) (map[Status]int, error)
}

// Limits is the slice of subscription.Service the inventory needs.
type Limits interface {
	Acquire(ctx context.Context, ownerID int64, resource string, scopeID int64) (subscription.Decision, error)
	ReleaseQuiet(ctx context.Context, ownerID int64, resource string, scopeID int64)
}

type Service struct {
	store     Store
	limits    Limits
	objects   objectstore.Store
	labels    *labels.Generator
	publicURL string
	logger    *utils.Logger
}

func NewService(st Store, limits Limits, objects objectstore.Store, gen *labels.Generator, publicURL string, logger *utils.Logger) *Service {
	return &Service{
		store:     st,
		limits:    limits,
		objects:   objects,
		labels:    gen,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

func (s *Service) Store() Store {
	return s.store
}

// ImageURL is the API path that serves an object key of the show.
func ImageURL(showID int64, key string) string {
	return fmt.Sprintf("/api/shows/%d/files/%s", showID, key)
}

// WithURLs fills Image.URL for every image of p.
func WithURLs(p *Prop) *Prop {
	if p == nil {
		return nil
	}
	for i := range p.Images {
		p.Images[i].URL = ImageURL(p.ShowID, p.Images[i].Key)
	}
	return p
}

func validateStage(show *store.Show, act, scene int) error {
	if act == 0 {
		return nil
	}
	for _, a := range show.Acts {
		if a.Number != act {
			continue
		}
		if scene == 0 || len(a.Scenes) == 0 {
			return nil
		}
		for _, sc := range a.Scenes {
			if sc.Number == scene {
				return nil
			}
		}
		return fmt.Errorf("%w: act %d has no scene %d", ErrInvalidInput, act, scene)
	}
	return fmt.Errorf("%w: show has no act %d", ErrInvalidInput, act)
}

// Create stores a new prop in show. The slot is counted against the show owner's plan.
func (s *Service) Create(ctx context.Context, show *store.Show, p *Prop, actor int64) (*Prop, error) {
	if show == nil {
		return nil, ErrNotFound
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateStage(show, p.Act, p.Scene); err != nil {
		return nil, err
	}
	p.ShowID = show.ID
	p.OwnerID = show.OwnerID
	p.CreatedBy = actor
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	if _, err := s.limits.Acquire(ctx, show.OwnerID, subscription.ResourceProps, 0); err != nil {
		return nil, err
	}
	if _, err := s.store.Create(ctx, p); err != nil {
		s.limits.ReleaseQuiet(ctx, show.OwnerID, subscription.ResourceProps, 0)
		return nil, err
	}
	return p, nil
}

// Update writes the editable fields. Status and images have their own operations.
func (s *Service) Update(ctx context.Context, show *store.Show, p *Prop) (*Prop, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateStage(show, p.Act, p.Scene); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.store.Get(ctx, p.ID)
}

func (s *Service) Delete(ctx context.Context, p *Prop) error {
	if err := s.store.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.limits.ReleaseQuiet(ctx, p.OwnerID, subscription.ResourceProps, 0)
	for _, img := range p.Images {
		s.deleteObject(ctx, img.Key)
	}
	if s.labels != nil {
		s.labels.Invalidate(labels.PropURL(s.publicURL, p.ShowID, p.ID))
	}
	return nil
}

// ChangeStatus moves p to status to and records the change. A concurrent change wins with ErrConflict.
func (s *Service) ChangeStatus(ctx context.Context, p *Prop, raw, note string, actor int64) (*Prop, error) {
	to, ok := ParseStatus(raw)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, raw)
	}
	if to == p.Status {
		return p, nil
	}
	if err := s.store.SetStatus(ctx, p.ID, p.Status, to, strings.TrimSpace(note), actor); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return s.store.Get(ctx, p.ID)
}

func (s *Service) History(ctx context.Context, p *Prop) ([]StatusChange, error) {
	return s.store.History(ctx, p.ID)
}

// AddImage uploads an image and attaches it to p. The first image becomes the main one.
func (s *Service) AddImage(ctx context.Context, p *Prop, filename, contentType, caption string, r io.Reader) (*Image, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("%w: storage disabled", ErrInvalidInput)
	}
	if len(p.Images) >= MaxImages {
		return nil, fmt.Errorf("%w: at most %d images", ErrInvalidInput, MaxImages)
	}
	if !objectstore.IsImage(contentType) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, objectstore.ErrUnsupported)
	}
	obj, err := s.objects.Put(ctx, fmt.Sprintf("shows/%d/props/%d", p.ShowID, p.ID), filename, contentType, r)
	if err != nil {
		if errors.Is(err, objectstore.ErrTooLarge) || errors.Is(err, objectstore.ErrUnsupported) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}
	img := Image{Key: obj.Key, Caption: strings.TrimSpace(caption), IsMain: len(p.Images) == 0}
	images := append(append([]Image{}, p.Images...), img)
	if err := s.store.SetImages(ctx, p.ID, images); err != nil {
		s.deleteObject(ctx, obj.Key)
		return nil, err
	}
	p.Images = images
	img.URL = ImageURL(p.ShowID, img.Key)
	return &img, nil
}

func (s *Service) RemoveImage(ctx context.Context, p *Prop, key string) error {
	idx := imageIndex(p.Images, key)
	if idx < 0 {
		return ErrNotFound
	}
	wasMain := p.Images[idx].IsMain
	images := append(append([]Image{}, p.Images[:idx]...), p.Images[idx+1:]...)
	if wasMain && len(images) > 0 {
		images[0].IsMain = true
	}
	if err := s.store.SetImages(ctx, p.ID, images); err != nil {
		return err
	}
	p.Images = images
	s.deleteObject(ctx, key)
	return nil
}

func (s *Service) SetMainImage(ctx context.Context, p *Prop, key string) error {
	idx := imageIndex(p.Images, key)
	if idx < 0 {
		return ErrNotFound
	}
	images := append([]Image{}, p.Images...)
	for i := range images {
		images[i].IsMain = i == idx
	}
	if err := s.store.SetImages(ctx, p.ID, images); err != nil {
		return err
	}
	p.Images = images
	return nil
}

func imageIndex(images []Image, key string) int {
	for i, img := range images {
		if img.Key == key {
			return i
		}
	}
	return -1
}

// Label renders the QR label pointing at the prop page.
func (s *Service) Label(p *Prop, size int) ([]byte, error) {
	if s.labels == nil {
		return nil, fmt.Errorf("%w: labels disabled", ErrInvalidInput)
	}
	return s.labels.PNG(labels.PropURL(s.publicURL, p.ShowID, p.ID), size)
}

func (s *Service) deleteObject(ctx context.Context, key string) {
	if s.objects == nil || key == "" {
		return
	}
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, objectstore.ErrNotFound) && s.logger != nil {
		s.logger.Errorf("prop image delete %s: %v", key, err)
	}
}

// ShowObjects are the blobs and cached labels held by a show's props.
type ShowObjects struct {
	Keys      []string
	LabelURLs []string
}

// CollectShowObjects lists the objects of every prop in showID. Collect before the show
// rows are deleted, drop after the delete has committed.
func (s *Service) CollectShowObjects(ctx context.Context, showID int64) (ShowObjects, error) {
	const page = 500
	var out ShowObjects
	for offset := 0; ; offset += page {
		items, _, err := s.store.List(ctx, Filter{ShowID: showID, Limit: page, Offset: offset})
		if err != nil {
			return ShowObjects{}, err
		}
		for _, p := range items {
			for _, img := range p.Images {
				out.Keys = append(out.Keys, img.Key)
			}
			out.LabelURLs = append(out.LabelURLs, labels.PropURL(s.publicURL, p.ShowID, p.ID))
		}
		if len(items) < page {
			return out, nil
		}
	}
}

// DropShowObjects removes what CollectShowObjects found. Failures are logged.
func (s *Service) DropShowObjects(ctx context.Context, objs ShowObjects) {
	for _, key := range objs.Keys {
		s.deleteObject(ctx, key)
	}
	if s.labels != nil {
		for _, u := range objs.LabelURLs {
			s.labels.Invalidate(u)
		}
	}
}
