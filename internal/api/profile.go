package api

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	nesterrs "github.com/adityarao312/feednest/internal/errors"
	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/history"
	"github.com/adityarao312/feednest/internal/serverutil"
)

func (s Server) getProfile(w http.ResponseWriter, r *http.Request) error {
	usr, err := s.repo.User(r.Context(), userID(r))
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("user not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiUser(usr))
}

type UpdateProfileReq struct {
	FullName  string  `json:"full_name"`
	Gender    string  `json:"gender"`
	Age       *int    `json:"age"`
	AvatarURL *string `json:"avatar_url"`
}

func (req UpdateProfileReq) Validate() error {
	var details []nesterrs.Detail
	switch req.Gender {
	case "", "Male", "Female", "Other":
	default:
		details = append(details, nesterrs.Detail{Field: "gender", Error: "gender must be Male, Female, or Other"})
	}
	if req.Age != nil && (*req.Age < 0 || *req.Age > 150) {
		details = append(details, nesterrs.Detail{Field: "age", Error: "age must be between 0 and 150"})
	}
	if len(details) > 0 {
		return nesterrs.E("invalid profile update", http.StatusBadRequest, details)
	}

	return nil
}

func (s Server) patchProfile(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[UpdateProfileReq](r.Body)
	if err != nil {
		return err
	}

	err = s.repo.UpdateUser(ctx, userID(r), feednest.UpdateUserArgs{
		FullName:  body.FullName,
		Gender:    body.Gender,
		Age:       body.Age,
		AvatarURL: body.AvatarURL,
	})
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("user not found", http.StatusNotFound)
	}
	if err != nil {
		return err
	}

	usr, err := s.repo.User(ctx, userID(r))
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiUser(usr))
}

type ChangePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (req ChangePasswordReq) Validate() error {
	var details []nesterrs.Detail
	if req.OldPassword == "" {
		details = append(details, nesterrs.Detail{Field: "old_password", Error: "old password is required"})
	}
	if len(req.NewPassword) < 8 {
		details = append(details, nesterrs.Detail{Field: "new_password", Error: "password must be at least 8 characters"})
	}
	if len(details) > 0 {
		return nesterrs.E("invalid password change", http.StatusBadRequest, details)
	}

	return nil
}

func (s Server) patchPassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[ChangePasswordReq](r.Body)
	if err != nil {
		return err
	}

	usr, err := s.repo.User(ctx, userID(r))
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(body.OldPassword)); err != nil {
		return nesterrs.E("incorrect password", http.StatusUnauthorized)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return nesterrs.E(err, http.StatusInternalServerError)
	}
	if err := s.repo.UpdateUser(ctx, usr.ID, feednest.UpdateUserArgs{PasswordHash: string(hash)}); err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

func (s Server) deleteProfile(w http.ResponseWriter, r *http.Request) error {
	if err := s.repo.DeleteUser(r.Context(), userID(r)); err != nil {
		return err
	}
	clearAuthCookies(w, s.httpsCookies)

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

type (
	HistoryBucketResp struct {
		Label string     `json:"label"`
		Items []ItemResp `json:"items"`
	}

	ReadHistoryResp struct {
		Buckets []HistoryBucketResp `json:"buckets"`
	}
)

func (s Server) getReadHistory(w http.ResponseWriter, r *http.Request) error {
	items, err := s.repo.ReadItems(r.Context(), userID(r))
	if err != nil {
		return err
	}

	resp := ReadHistoryResp{
		Buckets: []HistoryBucketResp{},
	}
	for _, bucket := range history.Group(items, time.Now()) {
		apiItems := make([]ItemResp, 0, len(bucket.Items))
		for _, item := range bucket.Items {
			apiItems = append(apiItems, apiItem(item))
		}
		resp.Buckets = append(resp.Buckets, HistoryBucketResp{
			Label: bucket.Label,
			Items: apiItems,
		})
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s Server) getLikedItems(w http.ResponseWriter, r *http.Request) error {
	items, err := s.repo.LikedItems(r.Context(), userID(r))
	if err != nil {
		return err
	}

	resp := ItemListResp{
		Items: make([]ItemResp, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, apiItem(item))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s Server) getLikedFeeds(w http.ResponseWriter, r *http.Request) error {
	feeds, err := s.repo.LikedFeeds(r.Context(), userID(r))
	if err != nil {
		return err
	}

	resp := FeedListResp{
		Feeds: make([]FeedResp, 0, len(feeds)),
	}
	for _, feed := range feeds {
		resp.Feeds = append(resp.Feeds, apiFeed(feed))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}
