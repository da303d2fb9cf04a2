package handler

import (
	"net/http"

	"github.com/Dan9191/adboard/internal/feed"
	"github.com/Dan9191/adboard/internal/middleware"
	"github.com/Dan9191/adboard/internal/models"
	"github.com/Dan9191/adboard/internal/service"
	"github.com/gorilla/mux"
)

// feedSize is how many of the newest ads the RSS feed carries
const feedSize = 50

// ListAds godoc
//
//	@Summary	List ads
//	@Tags		Ads
//	@Produce	json
//	@Success	200	{object}	listResponse[models.Ad]
//	@Router		/ads [get]
func (h *Handler) ListAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.svc.ListAds(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(ads))
}

// GetAd godoc
//
//	@Summary	Get an ad
//	@Tags		Ads
//	@Produce	json
//	@Param		id	path		string	true	"Ad ID"
//	@Success	200	{object}	dataResponse[models.Ad]
//	@Failure	404	{object}	messageResponse
//	@Router		/ads/{id} [get]
func (h *Handler) GetAd(w http.ResponseWriter, r *http.Request) {
	ad, err := h.svc.GetAd(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, data(ad))
}

// MyAds godoc
//
//	@Summary	List the caller's ads
//	@Tags		Ads
//	@Produce	json
//	@Success	200	{object}	listResponse[models.Ad]
//	@Failure	401	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/ads/my [get]
func (h *Handler) MyAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.svc.ListMyAds(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, list(ads))
}

// Feed serves the newest ads as RSS
//
//	@Summary	RSS feed of the newest ads
//	@Tags		Ads
//	@Produce	xml
//	@Success	200	{string}	string	"RSS 2.0 document"
//	@Router		/ads/feed [get]
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	ads, err := h.svc.LatestAds(r.Context(), feedSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := feed.BuildRSS(feed.Channel{
		Title:       "Adboard",
		Link:        h.cfg.PublicBaseURL,
		Description: "Latest ads",
	}, ads)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// CreateAd godoc
//
//	@Summary	Create an ad
//	@Tags		Ads
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		title		formData	string		true	"Title"
//	@Param		description	formData	string		true	"Description"
//	@Param		location	formData	[]string	true	"Locations"
//	@Param		category	formData	[]string	true	"Categories"
//	@Param		price		formData	string		true	"Price"
//	@Param		image		formData	file		true	"Image"
//	@Success	201			{object}	dataResponse[models.Ad]
//	@Failure	400			{object}	messageResponse
//	@Failure	401			{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/ads/create [post]
func (h *Handler) CreateAd(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer cleanupMultipart(r)

	in := service.AdInput{}
	in.Title, _ = formValue(r, "title")
	in.Description, _ = formValue(r, "description")
	in.Location, _ = formList(r, "location")
	in.Category, _ = formList(r, "category")
	in.Price, _ = formValue(r, "price")

	image, closeFile, err := h.formUpload(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	ad, err := h.svc.CreateAd(r.Context(), caller(r), in, image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, data(ad))
}

// UpdateAd godoc
//
//	@Summary		Update an ad
//	@Description	Only the fields sent are changed. The image is optional unless the server requires one.
//	@Tags			Ads
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id			path		string		true	"Ad ID"
//	@Param			title		formData	string		false	"Title"
//	@Param			description	formData	string		false	"Description"
//	@Param			location	formData	[]string	false	"Locations"
//	@Param			category	formData	[]string	false	"Categories"
//	@Param			price		formData	string		false	"Price"
//	@Param			image		formData	file		false	"Image"
//	@Success		200			{object}	adUpdateResponse
//	@Failure		400			{object}	messageResponse
//	@Failure		403			{object}	messageResponse
//	@Failure		404			{object}	messageResponse
//	@Security		BearerAuth
//	@Router			/ads/update/{id} [put]
func (h *Handler) UpdateAd(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.fail(w, r, err)
		return
	}
	defer cleanupMultipart(r)

	image, closeFile, err := h.formUpload(r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer closeFile()

	ad, err := h.svc.UpdateAd(r.Context(), caller(r), mux.Vars(r)["id"], adPatch(r), image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, adUpdateResponse{Success: true, Message: service.MsgAdsUpdated, Data: ad})
}

// DeleteAd godoc
//
//	@Summary	Delete an ad
//	@Tags		Ads
//	@Produce	json
//	@Param		id	path		string	true	"Ad ID"
//	@Success	200	{object}	messageResponse
//	@Failure	403	{object}	messageResponse
//	@Failure	404	{object}	messageResponse
//	@Security	BearerAuth
//	@Router		/ads/delete/{id} [delete]
func (h *Handler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAd(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: service.MsgAdsDeleted})
}

// adPatch builds a patch from the form keys actually sent
func adPatch(r *http.Request) models.AdPatch {
	var p models.AdPatch
	if v, ok := formValue(r, "title"); ok {
		p.Title = &v
	}
	if v, ok := formValue(r, "description"); ok {
		p.Description = &v
	}
	if v, ok := formValue(r, "price"); ok {
		p.Price = &v
	}
	if v, ok := formList(r, "location"); ok {
		p.Location = v
	}
	if v, ok := formList(r, "category"); ok {
		p.Category = v
	}
	return p
}
