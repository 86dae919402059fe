package controllers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/recapfood/recap-food-api/app/models"
	"github.com/recapfood/recap-food-api/app/repository"
	"github.com/recapfood/recap-food-api/internal/pkg/database"
	"github.com/recapfood/recap-food-api/internal/pkg/entitlements"
	"github.com/recapfood/recap-food-api/internal/pkg/photostorage"
	"github.com/recapfood/recap-food-api/internal/pkg/plancatalog"
	"github.com/recapfood/recap-food-api/internal/pkg/usercontext"
)

var allowedPhotoExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// HandleBrowseListings returns the public paginated listing feed with
// optional q/category/city/type filters.
func HandleBrowseListings(c *fiber.Ctx) error {
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetListingRepository()

	// Lazy expiry sweep so the public feed never serves listings past their
	// expiry date.
	if expired, err := repo.MarkExpiredListings(); err != nil {
		log.Warnf("[Listing] expiry sweep failed: %v", err)
	} else if expired > 0 {
		log.Infof("[Listing] marked %d listings expired", expired)
	}

	listings, total, err := repo.Search(repository.ListingFilter{
		Query:       c.Query("q"),
		Category:    c.Query("category"),
		City:        c.Query("city"),
		ListingType: c.Query("type"),
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{
		"listings": listings,
		"total":    total,
	})
}

// HandleGetListing returns a single listing by UUID and counts the view.
func HandleGetListing(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetListingRepository()
	listing, err := repo.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	_ = repo.UpdateViewCount(listing.ID)
	return c.JSON(listing)
}

// HandleGetMyListings returns the authenticated user's own listings.
func HandleGetMyListings(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset, limit := parsePagination(c)

	repo := repository.GetGlobalFactory().GetListingRepository()
	listings, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(fiber.Map{"listings": listings})
}

// HandleCreateListing creates a listing after the plan gate and quota check.
func HandleCreateListing(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	sub, err := models.GetOrCreateSubscription(database.GetDB(), userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if !entitlements.CanListItems(sub) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "listing items requires a premium or enterprise plan",
		})
	}

	plan := plancatalog.ParsePlan(sub.Plan)
	repo := repository.GetGlobalFactory().GetListingRepository()
	active, err := repo.CountActiveByUserID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if !entitlements.CanCreateListing(plan, int(active)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "limit_reached",
			"message": fmt.Sprintf("plan %s allows at most %d active listings", plan, plancatalog.PlanLimits(plan).MaxListings),
		})
	}

	var listing models.FoodListing
	if err := c.BodyParser(&listing); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "invalid request body"})
	}
	listing.ID = 0
	listing.UUID = ""
	listing.UserID = userCtx.UserID
	listing.Status = models.ListingStatusAvailable
	listing.ViewCount = 0
	listing.Photos = nil
	if listing.ListingType == "" {
		listing.ListingType = models.ListingTypeSell
	}
	if listing.Unit == "" {
		listing.Unit = "pieces"
	}
	if listing.Quantity == 0 {
		listing.Quantity = 1
	}
	if listing.IsDonation() {
		listing.DiscountedPrice = 0
	}

	if err := listing.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": err.Error()})
	}
	if err := repo.Create(&listing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusCreated).JSON(listing)
}

// HandleUpdateListing updates an owned listing.
func HandleUpdateListing(c *fiber.Ctx) error {
	listing, errResp := getOwnedListing(c)
	if listing == nil {
		return errResp
	}

	var body models.FoodListing
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "invalid request body"})
	}

	listing.Title = body.Title
	listing.Description = body.Description
	listing.Category = body.Category
	listing.ListingType = body.ListingType
	listing.OriginalPrice = body.OriginalPrice
	listing.DiscountedPrice = body.DiscountedPrice
	listing.Quantity = body.Quantity
	listing.Unit = body.Unit
	listing.ExpiryDate = body.ExpiryDate
	listing.Address = body.Address
	listing.City = body.City
	listing.ZipCode = body.ZipCode
	listing.Latitude = body.Latitude
	listing.Longitude = body.Longitude
	if listing.IsDonation() {
		listing.DiscountedPrice = 0
	}

	if err := listing.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": err.Error()})
	}

	repo := repository.GetGlobalFactory().GetListingRepository()
	if err := repo.Update(listing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(listing)
}

// HandleUpdateListingStatus moves a listing between available, reserved and
// sold.
func HandleUpdateListingStatus(c *fiber.Ctx) error {
	listing, errResp := getOwnedListing(c)
	if listing == nil {
		return errResp
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "invalid request body"})
	}
	switch body.Status {
	case models.ListingStatusAvailable, models.ListingStatusReserved, models.ListingStatusSold:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "invalid status"})
	}

	listing.Status = body.Status
	repo := repository.GetGlobalFactory().GetListingRepository()
	if err := repo.Update(listing); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(listing)
}

// HandleDeleteListing removes an owned listing and its photos.
func HandleDeleteListing(c *fiber.Ctx) error {
	listing, errResp := getOwnedListing(c)
	if listing == nil {
		return errResp
	}

	if client := getPhotoClient(); client != nil {
		for _, photo := range listing.Photos {
			if err := client.DeletePhoto(c.Context(), photo.ObjectKey); err != nil {
				log.Warnf("photo delete failed for %s: %v", photo.ObjectKey, err)
			}
		}
	}

	repo := repository.GetGlobalFactory().GetListingRepository()
	if err := repo.DeletePhotos(listing.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if err := repo.Delete(listing.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleUploadListingPhoto uploads one photo to S3 within the plan's photo cap.
func HandleUploadListingPhoto(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	listing, errResp := getOwnedListing(c)
	if listing == nil {
		return errResp
	}

	client := getPhotoClient()
	if client == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "photo_storage_disabled"})
	}

	sub, err := models.GetOrCreateSubscription(database.GetDB(), userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	plan := plancatalog.ParsePlan(sub.Plan)

	repo := repository.GetGlobalFactory().GetListingRepository()
	count, err := repo.CountPhotos(listing.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if !entitlements.CanAddPhoto(plan, int(count)) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "limit_reached",
			"message": fmt.Sprintf("plan %s allows at most %d photos per listing", plan, plancatalog.PlanLimits(plan).MaxPhotosPerListing),
		})
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "photo file is required"})
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedPhotoExtensions[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation", "message": "unsupported file type"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	defer file.Close()

	position := int(count) + 1
	objectKey := client.Config().GetObjectKey(listing.UUID, position, ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if err := client.UploadPhoto(c.Context(), objectKey, file, fileHeader.Size, contentType); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream", "message": "photo upload failed"})
	}

	photo := &models.ListingPhoto{
		ListingID: listing.ID,
		ObjectKey: objectKey,
		PublicURL: client.PublicURL(objectKey),
		Position:  position,
	}
	if err := repo.AddPhoto(photo); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusCreated).JSON(photo)
}

// getOwnedListing loads the listing from the :uuid param and enforces
// ownership. On failure it returns nil plus the already-written response.
func getOwnedListing(c *fiber.Ctx) (*models.FoodListing, error) {
	userCtx := usercontext.GetUserContext(c)

	repo := repository.GetGlobalFactory().GetListingRepository()
	listing, err := repo.GetByUUID(c.Params("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if listing.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return nil, c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "not your listing"})
	}
	return listing, nil
}

var photoClient *photostorage.Client

// InitPhotoStorage wires the S3 photo client at startup; disabled storage is
// not an error.
func InitPhotoStorage() {
	cfg, err := photostorage.LoadConfig()
	if err != nil {
		log.Warnf("photo storage config invalid: %v", err)
		return
	}
	if !cfg.IsEnabled() {
		log.Info("[Photos] storage disabled")
		return
	}
	client, err := photostorage.NewClient(cfg)
	if err != nil {
		log.Warnf("photo storage init failed: %v", err)
		return
	}
	photoClient = client
}

func getPhotoClient() *photostorage.Client {
	return photoClient
}
