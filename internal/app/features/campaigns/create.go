// internal/app/features/campaigns/create.go
package campaigns

import (
	"context"
	"errors"
	"net/http"
	"time"

	campaignstore "github.com/dalemusser/fundhub/internal/app/store/campaigns"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/auth"
	"github.com/dalemusser/fundhub/internal/app/system/blobstore"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/limits"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeCreate handles POST /campaigns. The organizer email defaults to the
// signed-in user's and may only differ for administrators, since it is what
// grants withdrawal rights.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	var nc campaignstore.NewCampaign
	if err := httpjson.Decode(w, r, &nc); err != nil {
		httpjson.Error(w, h.Log, "create campaign", err)
		return
	}
	if nc.Organizer.Email == "" {
		nc.Organizer.Email = u.Email
	}
	if nc.Organizer.Name == "" {
		nc.Organizer.Name = u.Name
	}
	if normalize.Email(nc.Organizer.Email) != normalize.Email(u.Email) && !h.SessionMgr.IsAdmin(r) {
		httpjson.Error(w, h.Log, "create campaign",
			apperr.Forbidden("organizer email must be the email you signed in with"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	id, err := h.Campaigns.Create(ctx, nc)
	if err != nil {
		httpjson.Error(w, h.Log, "create campaign", err)
		return
	}
	c, err := h.get(ctx, id)
	if err != nil {
		httpjson.Error(w, h.Log, "create campaign", err)
		return
	}

	h.Log.Info("campaign created",
		zap.String("campaign_id", id.Hex()),
		zap.String("organizer", c.Organizer.Email))
	httpjson.Write(w, http.StatusCreated, c)
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// ServeUpload handles POST /campaigns/images, a multipart form with a
// "file" part. Only the declared content type and size are checked.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	if h.Storage == nil {
		httpjson.Write(w, http.StatusServiceUnavailable, httpjson.ErrorBody{Error: "image storage is not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, blobstore.MaxImageSize+limits.MultipartSlack)
	if err := r.ParseMultipartForm(blobstore.MaxImageSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpjson.Error(w, h.Log, "upload image", apperr.Validation("file", "Images must be 10 MB or smaller."))
			return
		}
		httpjson.Error(w, h.Log, "upload image", apperr.Validation("file", "Upload must be a multipart form."))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpjson.Error(w, h.Log, "upload image", apperr.Validation("file", "File is required."))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	up, err := blobstore.PutImage(ctx, h.Storage, header.Filename, file, header.Size,
		header.Header.Get("Content-Type"), time.Now())
	if err != nil {
		if !apperr.IsValidation(err) {
			err = apperr.External("image storage", err)
		}
		httpjson.Error(w, h.Log, "upload image", err)
		return
	}

	h.Log.Info("campaign image uploaded", zap.String("key", up.Key), zap.Int64("size", up.Size))
	httpjson.Write(w, http.StatusCreated, uploadResponse{URL: up.URL, Key: up.Key})
}
