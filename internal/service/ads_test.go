package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/Dan9191/adboard/internal/config"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/stretchr/testify/require"
)

func validAd() AdInput {
	return AdInput{
		Title:       "Bike",
		Description: "Red city bike",
		Location:    []string{"Tashkent"},
		Category:    []string{"sport", "transport"},
		Price:       "100",
	}
}

func png() *Upload {
	return &Upload{Filename: "bike.png", Body: strings.NewReader("png")}
}

func TestCreateAd(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	ctx := context.Background()

	ad, err := f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)
	require.Equal(t, alice.ID, ad.User)
	require.Equal(t, "/uploads/image-bike.png", ad.Image)
	require.Equal(t, []string{"sport", "transport"}, ad.Category)

	got, err := f.svc.GetAd(ctx, ad.ID)
	require.NoError(t, err)
	require.Equal(t, ad.Title, got.Title)
}

func TestCreateAd_Validation(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*AdInput)
		image  *Upload
		msg    string
	}{
		{"missing title", func(in *AdInput) { in.Title = " " }, png(), MsgAllFields},
		{"missing price", func(in *AdInput) { in.Price = "" }, png(), MsgAllFields},
		{"blank location", func(in *AdInput) { in.Location = []string{"", " "} }, png(), MsgAllFields},
		{"no category", func(in *AdInput) { in.Category = nil }, png(), MsgAllFields},
		{"no image", func(*AdInput) {}, nil, MsgImageRequired},
		{"bad image", func(*AdInput) {}, &Upload{Filename: "bike.svg", Body: strings.NewReader("")}, MsgUnsupportedImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validAd()
			tt.mutate(&in)
			_, err := f.svc.CreateAd(ctx, alice, in, tt.image)
			requireStatus(t, err, http.StatusBadRequest, tt.msg)
		})
	}

	ads, err := f.svc.ListAds(ctx)
	require.NoError(t, err)
	require.Empty(t, ads)
}

func TestGetAd_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAd(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	requireStatus(t, err, http.StatusNotFound, MsgAdsNotFound)

	_, err = f.svc.GetAd(context.Background(), "not-an-id")
	requireStatus(t, err, http.StatusNotFound, MsgAdsNotFound)
}

func TestUpdateAd(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	bob, _ := f.register(t, "bob")
	ctx := context.Background()
	ad, err := f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)

	price := " 150 "
	got, err := f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{Price: &price}, nil)
	require.NoError(t, err)
	require.Equal(t, "150", got.Price)
	require.Equal(t, ad.Image, got.Image)
	require.Equal(t, ad.Title, got.Title)

	got, err = f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{}, &Upload{Filename: "new.jpg", Body: strings.NewReader("jpg")})
	require.NoError(t, err)
	require.Equal(t, "/uploads/image-new.jpg", got.Image)

	blank := ""
	_, err = f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{Title: &blank}, nil)
	requireStatus(t, err, http.StatusBadRequest, MsgEmptyField)

	_, err = f.svc.UpdateAd(ctx, bob, ad.ID, models.AdPatch{Price: &price}, nil)
	requireStatus(t, err, http.StatusForbidden, MsgForbiddenAd)

	_, err = f.svc.UpdateAd(ctx, alice, "01ARZ3NDEKTSV4RRFFQ69G5FAV", models.AdPatch{Price: &price}, nil)
	requireStatus(t, err, http.StatusNotFound, MsgAdsNotFound)
}

func TestUpdateAd_RequireImage(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.AdsUpdateRequireImage = true })
	alice, _ := f.register(t, "alice")
	ctx := context.Background()
	ad, err := f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)

	price := "1"
	_, err = f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{Price: &price}, nil)
	requireStatus(t, err, http.StatusBadRequest, MsgImageRequired)

	_, err = f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{Price: &price}, png())
	require.NoError(t, err)
}

func TestCreateAd_DiscardsUploadWhenStoreFails(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	store := f.faulty()
	store.createAdErr = errors.New("connection reset")

	_, err := f.svc.CreateAd(context.Background(), alice, validAd(), png())
	require.ErrorIs(t, err, store.createAdErr)
	require.Len(t, f.files.saved, 1)
	require.Equal(t, f.files.saved, f.files.deleted)
}

func TestUpdateAd_DiscardsUploadWhenStoreFails(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	ctx := context.Background()
	ad, err := f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)

	store := f.faulty()
	store.updateAdErr = errors.New("connection reset")
	_, err = f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{}, &Upload{Filename: "new.jpg", Body: strings.NewReader("jpg")})
	require.ErrorIs(t, err, store.updateAdErr)
	require.Equal(t, []string{"/uploads/image-new.jpg"}, f.files.deleted)

	// a text-only update never touches the file store
	f.files.deleted = nil
	price := "5"
	_, err = f.svc.UpdateAd(ctx, alice, ad.ID, models.AdPatch{Price: &price}, nil)
	require.Error(t, err)
	require.Empty(t, f.files.deleted)
}

func TestDeleteAd(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	bob, _ := f.register(t, "bob")
	admin, _, err := f.svc.Register(context.Background(), "root", "root@example.com", "rootpass")
	require.NoError(t, err)
	ctx := context.Background()

	first, err := f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)
	second, err := f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)

	requireStatus(t, f.svc.DeleteAd(ctx, bob, first.ID), http.StatusForbidden, MsgForbiddenAd)
	require.NoError(t, f.svc.DeleteAd(ctx, alice, first.ID))
	requireStatus(t, f.svc.DeleteAd(ctx, alice, first.ID), http.StatusNotFound, MsgAdsNotFound)
	require.NoError(t, f.svc.DeleteAd(ctx, admin, second.ID))
}

func TestListMyAds(t *testing.T) {
	f := newFixture(t)
	alice, _ := f.register(t, "alice")
	bob, _ := f.register(t, "bob")
	ctx := context.Background()

	mine, err := f.svc.ListMyAds(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, mine)

	_, err = f.svc.CreateAd(ctx, alice, validAd(), png())
	require.NoError(t, err)
	_, err = f.svc.CreateAd(ctx, bob, validAd(), png())
	require.NoError(t, err)

	mine, err = f.svc.ListMyAds(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, alice.ID, mine[0].User)

	all, err := f.svc.ListAds(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	latest, err := f.svc.LatestAds(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
}

func TestListMyAds_EmptyNotFound(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.MyAdsEmptyNotFound = true })
	alice, _ := f.register(t, "alice")

	_, err := f.svc.ListMyAds(context.Background(), alice)
	requireStatus(t, err, http.StatusNotFound, MsgNoOwnAds)
}
