package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/collegify/collegify/internal/account"
	auth "github.com/collegify/collegify/internal/auth/middleware"
	"github.com/collegify/collegify/internal/httpx"
)

type studentRequest struct {
	MHTCETCutoff    *number `json:"mht_cet_cutoff"`
	Category        string  `json:"category" validate:"omitempty,oneof=Open SC ST OBC"`
	PreferredRegion string  `json:"preferred_region" validate:"max=255"`
	PreferredBranch string  `json:"preferred_branch" validate:"max=255"`
	AdditionalInfo  string  `json:"additional_info" validate:"max=2000"`
}

type profileRequest struct {
	Name    string          `json:"name" validate:"max=255"`
	Student *studentRequest `json:"student"`
}

func GetProfileHandler(accounts *account.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := accounts.Profile(r.Context(), auth.SubjectFromContext(r.Context()))
		if errors.Is(err, account.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			serverError(w, log, "get profile", err)
			return
		}
		httpx.JSON(w, http.StatusOK, p)
	}
}

func UpdateProfileHandler(accounts *account.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if !decode(w, r, &req) {
			return
		}
		id, _ := auth.IdentityFromContext(r.Context())

		upd := account.ProfileUpdate{Name: req.Name}
		if s := req.Student; s != nil {
			st := &account.Student{
				Category:        s.Category,
				PreferredRegion: s.PreferredRegion,
				PreferredBranch: s.PreferredBranch,
				AdditionalInfo:  s.AdditionalInfo,
			}
			if s.MHTCETCutoff != nil {
				v := float64(*s.MHTCETCutoff)
				if !inPercentRange(v) {
					httpx.Error(w, http.StatusBadRequest, "mht_cet_cutoff is out of range")
					return
				}
				st.MHTCETCutoff = &v
			}
			upd.Student = st
		}

		err := accounts.UpdateProfile(r.Context(), id.ID, id.Role, upd)
		if errors.Is(err, account.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			serverError(w, log, "update profile", err)
			return
		}
		httpx.Message(w, http.StatusOK, "Profile updated successfully")
	}
}
