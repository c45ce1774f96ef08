package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/dmarceau/shopstream-backend/pkg/db/models"
	pkgerrors "github.com/dmarceau/shopstream-backend/pkg/errors"
	"github.com/dmarceau/shopstream-backend/pkg/logger"
	"github.com/dmarceau/shopstream-backend/pkg/media"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultSampleSize = 4

// Service exposes catalog management and storefront read paths.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	ToggleFeatured(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListAll(ctx context.Context) ([]ProductDTO, error)
	ListByCategory(ctx context.Context, category string) ([]ProductDTO, error)
	ListFeatured(ctx context.Context) ([]ProductDTO, error)
	SampleRandom(ctx context.Context, n int) ([]ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	PriceCents  int64
	Category    string
	StockCount  int
	IsFeatured  bool
	Image       io.Reader
}

// UpdateProductInput holds optional mutation values. Only these fields may be
// patched; featured status changes go through ToggleFeatured.
type UpdateProductInput struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Category    *string
	StockCount  *int
	Image       io.Reader
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	Repo     *Repository
	Cache    FeaturedCache
	Uploader media.Uploader
	Logger   *logger.Logger
}

type service struct {
	repo     *Repository
	cache    FeaturedCache
	uploader media.Uploader
	logg     *logger.Logger
}

// NewService constructs a catalog service instance. The uploader may be nil,
// in which case image uploads are rejected.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Cache == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "featured cache is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{
		repo:     params.Repo,
		cache:    params.Cache,
		uploader: params.Uploader,
		logg:     params.Logger,
	}, nil
}

// CreateProduct inserts the product and refreshes the featured cache.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		PriceCents:  input.PriceCents,
		Category:    normalizeCategory(input.Category),
		StockCount:  input.StockCount,
		IsFeatured:  input.IsFeatured,
	}

	if input.Image != nil {
		image, err := s.uploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		product.ImageURL = image.URL
		product.ImagePublicID = image.PublicID
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if product.ImagePublicID != "" {
			s.destroyImage(ctx, product.ImagePublicID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	if created.IsFeatured {
		s.refreshFeaturedCache(ctx)
	}

	dto := toDTO(*created)
	return &dto, nil
}

// UpdateProduct patches only the allow-listed fields, then refreshes the
// featured cache when the product is on the featured list.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		product.PriceCents = *input.PriceCents
	}
	if input.Category != nil {
		category := normalizeCategory(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		product.Category = category
	}
	if input.StockCount != nil {
		if *input.StockCount < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
		}
		product.StockCount = *input.StockCount
	}
	if input.Image != nil {
		image, err := s.uploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		s.destroyImage(ctx, product.ImagePublicID)
		product.ImageURL = image.URL
		product.ImagePublicID = image.PublicID
	}

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	if updated.IsFeatured {
		s.refreshFeaturedCache(ctx)
	}

	dto := toDTO(*updated)
	return &dto, nil
}

// DeleteProduct removes the row, its hosted image, and refreshes the cache.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}

	s.destroyImage(ctx, product.ImagePublicID)

	if product.IsFeatured {
		s.refreshFeaturedCache(ctx)
	}
	return nil
}

// ToggleFeatured flips the featured flag and refreshes the cache either way.
func (s *service) ToggleFeatured(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.IsFeatured = !product.IsFeatured
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle featured")
	}

	s.refreshFeaturedCache(ctx)

	dto := toDTO(*updated)
	return &dto, nil
}

// GetProduct loads one product by ID.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*product)
	return &dto, nil
}

// ListAll returns the entire catalog.
func (s *service) ListAll(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return toDTOs(rows), nil
}

// ListByCategory returns the catalog slice for one category.
func (s *service) ListByCategory(ctx context.Context, category string) ([]ProductDTO, error) {
	category = normalizeCategory(category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	rows, err := s.repo.ListByCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products by category")
	}
	return toDTOs(rows), nil
}

// ListFeatured serves the featured list cache-aside: the cache is tried first,
// a miss is filled from the database, and any cache fault degrades to a direct
// database read instead of failing the request.
func (s *service) ListFeatured(ctx context.Context) ([]ProductDTO, error) {
	cached, err := s.cache.GetFeatured(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "featured cache read failed, serving from db")
	}

	rows, err := s.repo.ListFeatured(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	dtos := toDTOs(rows)

	if err := s.cache.SetFeatured(ctx, dtos); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "featured cache fill failed")
	}
	return dtos, nil
}

// SampleRandom returns a random display subset of the catalog.
func (s *service) SampleRandom(ctx context.Context, n int) ([]ProductDTO, error) {
	if n <= 0 {
		n = defaultSampleSize
	}
	rows, err := s.repo.SampleRandom(ctx, n)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sample products")
	}
	return toDTOs(rows), nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// refreshFeaturedCache recomputes the cached list from the database truth and
// overwrites the key. Cache faults are logged and swallowed so a committed
// catalog mutation never fails on the cache.
func (s *service) refreshFeaturedCache(ctx context.Context) {
	rows, err := s.repo.ListFeatured(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "featured cache recompute read failed")
		return
	}
	if err := s.cache.SetFeatured(ctx, toDTOs(rows)); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "featured cache overwrite failed")
	}
}

func (s *service) uploadImage(ctx context.Context, r io.Reader) (media.Image, error) {
	if s.uploader == nil {
		return media.Image{}, pkgerrors.New(pkgerrors.CodeValidation, "image uploads are not configured")
	}
	image, err := s.uploader.Upload(ctx, r)
	if err != nil {
		return media.Image{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload product image")
	}
	return image, nil
}

func (s *service) destroyImage(ctx context.Context, publicID string) {
	if s.uploader == nil || publicID == "" {
		return
	}
	if err := s.uploader.Destroy(ctx, publicID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "destroy product image failed")
	}
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if normalizeCategory(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.StockCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}
	return nil
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
