package httpapi

import (
	"time"

	"github.com/dmitrijs2005/tgotp/internal/server/models"
	"github.com/dmitrijs2005/tgotp/internal/server/services"
)

type authRequest struct {
	InitData string  `json:"init_data"`
	PIN      *string `json:"pin"`
}

type userResponse struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	LanguageCode string    `json:"language_code"`
	HasPIN       bool      `json:"has_pin"`
	KeepUnlocked bool      `json:"keep_unlocked"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:           u.ID,
		TelegramID:   u.TelegramID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
		HasPIN:       u.HasPIN(),
		KeepUnlocked: u.KeepUnlocked,
		CreatedAt:    u.CreatedAt,
		LastLogin:    u.LastLogin,
	}
}

type authResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

type accountRequest struct {
	Label   string `json:"label"`
	Service string `json:"service"`
	Secret  string `json:"secret"`
	URI     string `json:"uri"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
}

func (a accountRequest) input() services.AccountInput {
	return services.AccountInput{Label: a.Label, Service: a.Service, Secret: a.Secret, Icon: a.Icon, Color: a.Color}
}

type moveRequest struct {
	Position *int `json:"position"`
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Label    string `json:"label"`
	Service  string `json:"service"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	Position int    `json:"position"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

type listResponse struct {
	Success       bool              `json:"success"`
	Accounts      []accountResponse `json:"accounts"`
	RemainingTime int               `json:"remaining_time"`
}

func toListResponse(l *services.Listing) listResponse {
	out := listResponse{Success: true, Accounts: make([]accountResponse, 0, len(l.Accounts)), RemainingTime: l.RemainingTime}
	for _, a := range l.Accounts {
		out.Accounts = append(out.Accounts, accountResponse(a))
	}
	return out
}

type createdResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type countResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

type userUpdateRequest struct {
	Action  string `json:"action"`
	PIN     string `json:"pin"`
	Enabled bool   `json:"enabled"`
}

type exportResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expires_at"`
}

type importRequest struct {
	Token string `json:"token"`
}
