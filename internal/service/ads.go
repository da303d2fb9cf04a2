package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/repository"
	"github.com/Dan9191/adboard/internal/utils"
	"github.com/sirupsen/logrus"
)

// AdInput carries the fields of a new listing
type AdInput struct {
	Title       string
	Description string
	Location    []string
	Category    []string
	Price       string
}

// ListAds returns every listing, newest first
func (s *Service) ListAds(ctx context.Context) ([]models.Ad, error) {
	return s.store.ListAds(ctx)
}

// LatestAds returns at most limit listings, newest first
func (s *Service) LatestAds(ctx context.Context, limit int) ([]models.Ad, error) {
	ads, err := s.store.ListAds(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ads) > limit {
		ads = ads[:limit]
	}
	return ads, nil
}

// GetAd returns a single listing
func (s *Service) GetAd(ctx context.Context, id string) (*models.Ad, error) {
	return s.findAd(ctx, id)
}

func (s *Service) findAd(ctx context.Context, id string) (*models.Ad, error) {
	if !utils.ValidID(id) {
		return nil, NotFound(MsgAdsNotFound)
	}
	ad, err := s.store.FindAdByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(MsgAdsNotFound)
	}
	if err != nil {
		return nil, err
	}
	return ad, nil
}

// ListMyAds returns the caller's listings
func (s *Service) ListMyAds(ctx context.Context, caller *models.User) ([]models.Ad, error) {
	ads, err := s.store.ListAdsByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 && s.config.MyAdsEmptyNotFound {
		return nil, NotFound(MsgNoOwnAds)
	}
	return ads, nil
}

// CreateAd stores the image and creates a listing owned by caller
func (s *Service) CreateAd(ctx context.Context, caller *models.User, in AdInput, image *Upload) (*models.Ad, error) {
	in = AdInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    cleanList(in.Location),
		Category:    cleanList(in.Category),
		Price:       strings.TrimSpace(in.Price),
	}
	if err := s.validate.Struct(adInput(in)); err != nil {
		return nil, BadRequest(MsgAllFields)
	}
	if image == nil {
		return nil, BadRequest(MsgImageRequired)
	}

	path, err := s.saveUpload(ctx, "image", image)
	if err != nil {
		return nil, err
	}

	ad := &models.Ad{
		ID:          utils.NewID(),
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Category:    in.Category,
		Price:       in.Price,
		Image:       path,
		User:        caller.ID,
	}
	if err := s.store.CreateAd(ctx, ad); err != nil {
		s.discardUpload(ctx, path)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"ad_id": ad.ID, "user_id": caller.ID}).Info("Ad created")
	return ad, nil
}

// UpdateAd applies patch, and a new image when one is given, to a listing
// the caller owns.
func (s *Service) UpdateAd(ctx context.Context, caller *models.User, id string, patch models.AdPatch, image *Upload) (*models.Ad, error) {
	ad, err := s.findAd(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(caller, ad) {
		return nil, Forbidden(MsgForbiddenAd)
	}

	patch, err = normalizePatch(patch)
	if err != nil {
		return nil, err
	}
	if image == nil && s.config.AdsUpdateRequireImage {
		return nil, BadRequest(MsgImageRequired)
	}
	if image != nil {
		path, err := s.saveUpload(ctx, "image", image)
		if err != nil {
			return nil, err
		}
		patch.Image = &path
	}

	updated, err := s.store.UpdateAd(ctx, ad.ID, patch)
	if err != nil && patch.Image != nil {
		s.discardUpload(ctx, *patch.Image)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, NotFound(MsgAdsNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"ad_id": ad.ID, "user_id": caller.ID}).Info("Ad updated")
	return updated, nil
}

// DeleteAd removes a listing the caller owns
func (s *Service) DeleteAd(ctx context.Context, caller *models.User, id string) error {
	ad, err := s.findAd(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(caller, ad) {
		return Forbidden(MsgForbiddenAd)
	}

	if err := s.store.DeleteAd(ctx, ad.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(MsgAdsNotFound)
		}
		return err
	}

	s.log.WithFields(logrus.Fields{"ad_id": ad.ID, "user_id": caller.ID}).Info("Ad deleted")
	return nil
}

func canModify(caller *models.User, ad *models.Ad) bool {
	return caller.Role == models.RoleAdmin || (ad.User != "" && ad.User == caller.ID)
}

// normalizePatch trims the given fields; a field that is present must not be blank
func normalizePatch(p models.AdPatch) (models.AdPatch, error) {
	for _, f := range []**string{&p.Title, &p.Description, &p.Price} {
		if *f == nil {
			continue
		}
		v := strings.TrimSpace(**f)
		if v == "" {
			return p, BadRequest(MsgEmptyField)
		}
		*f = &v
	}
	for _, l := range []*[]string{&p.Location, &p.Category} {
		if *l == nil {
			continue
		}
		cleaned := cleanList(*l)
		if len(cleaned) == 0 {
			return p, BadRequest(MsgEmptyField)
		}
		*l = cleaned
	}
	return p, nil
}
