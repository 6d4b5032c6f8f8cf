package api

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	goaway "github.com/TwiN/go-away"
	"golang.org/x/crypto/bcrypt"

	nesterrs "github.com/adityarao312/feednest/internal/errors"
	"github.com/adityarao312/feednest/internal/feednest"
	"github.com/adityarao312/feednest/internal/serverutil"
)

type UserResp struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Gender    string    `json:"gender"`
	Age       *int      `json:"age"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func apiUser(usr feednest.User) UserResp {
	return UserResp{
		ID:        usr.ID,
		Username:  usr.Username,
		Email:     usr.Email,
		FullName:  usr.FullName,
		Gender:    usr.Gender,
		Age:       usr.Age,
		AvatarURL: usr.AvatarURL,
		CreatedAt: usr.CreatedAt,
		UpdatedAt: usr.UpdatedAt,
	}
}

type SignupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req SignupReq) Validate() error {
	var details []nesterrs.Detail
	if req.Username == "" {
		details = append(details, nesterrs.Detail{Field: "username", Error: "username is required"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details = append(details, nesterrs.Detail{Field: "email", Error: "a valid email is required"})
	}
	if len(req.Password) < 8 {
		details = append(details, nesterrs.Detail{Field: "password", Error: "password must be at least 8 characters"})
	}
	if len(details) > 0 {
		return nesterrs.E("invalid signup request", http.StatusBadRequest, details)
	}

	// Usernames show up on anything the user shares, so keep them clean.
	if goaway.IsProfane(req.Username) {
		return nesterrs.E("profanity detected in username", http.StatusUnprocessableEntity)
	}

	return nil
}

func (s Server) postSignup(w http.ResponseWriter, r *http.Request) error {
	body, err := serverutil.DecodeValid[SignupReq](r.Body)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		return nesterrs.E(err, http.StatusInternalServerError)
	}

	usr, err := s.repo.InsertUser(r.Context(), body.Username, body.Email, string(hash))
	if errors.Is(err, feednest.ErrConflict) {
		return nesterrs.E("username or email already taken", http.StatusConflict)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, apiUser(usr))
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req LoginReq) Validate() error {
	var details []nesterrs.Detail
	if req.Email == "" {
		details = append(details, nesterrs.Detail{Field: "email", Error: "email is required"})
	}
	if req.Password == "" {
		details = append(details, nesterrs.Detail{Field: "password", Error: "password is required"})
	}
	if len(details) > 0 {
		return nesterrs.E("invalid login request", http.StatusBadRequest, details)
	}

	return nil
}

func (s Server) postLogin(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	body, err := serverutil.DecodeValid[LoginReq](r.Body)
	if err != nil {
		return err
	}

	// Same 401 whether the account is missing or the password is wrong, so
	// the response doesn't leak which emails have accounts.
	usr, err := s.repo.UserByEmail(ctx, body.Email)
	if errors.Is(err, feednest.ErrNotFound) {
		return nesterrs.E("invalid email or password", http.StatusUnauthorized)
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(body.Password)); err != nil {
		return nesterrs.E("invalid email or password", http.StatusUnauthorized)
	}

	pair, err := s.tokens.IssuePair(ctx, usr.ID)
	if err != nil {
		return err
	}
	setAuthCookies(w, s.httpsCookies, pair)

	return serverutil.WriteJSON(w, http.StatusOK, apiUser(usr))
}

func (s Server) postLogout(w http.ResponseWriter, r *http.Request) error {
	if err := s.tokens.Revoke(r.Context(), userID(r)); err != nil {
		return err
	}
	clearAuthCookies(w, s.httpsCookies)

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}

func (s Server) postRefresh(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(refreshCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nesterrs.E("missing refresh token", http.StatusUnauthorized)
	}

	pair, err := s.tokens.Rotate(r.Context(), cookie.Value)
	if err != nil {
		return err
	}
	setAuthCookies(w, s.httpsCookies, pair)

	return serverutil.WriteJSON(w, http.StatusOK, struct{}{})
}
