package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	authmw "github.com/abbosc/imajor-quiz-sub001/internal/auth/middleware"
	"github.com/abbosc/imajor-quiz-sub001/internal/config"
)

// GuestLoginHandler issues a browser-scoped guest identity so a visitor
// can take the quiz before signing up. Guest submissions carry no
// user_id; a later signup creates a fresh submission via the reconciler
// rather than mutating the guest one.
func GuestLoginHandler(a *authmw.AuthService, db *sql.DB, cfg config.Config) http.HandlerFunc {
	type out struct {
		AccessToken string `json:"access_token"`
		Name        string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.EnableGuestAuth {
			http.Error(w, "guest auth disabled", http.StatusForbidden)
			return
		}

		// Reuse an existing guest from the cookie when possible.
		if c, err := r.Cookie("imj_guest_id"); err == nil && c.Value != "" {
			var name, role string
			err := db.QueryRow(`SELECT name, role FROM users WHERE id=$1`, c.Value).Scan(&name, &role)
			if err == nil && role == "guest" && strings.HasPrefix(c.Value, "guest|") {
				tok, _ := a.IssueJWT(c.Value, role, "", name)
				setGuestCookie(w, c.Value)
				_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Name: name})
				return
			}
		}

		sfx := strconv.FormatInt(time.Now().UnixNano(), 36)
		userID := "guest|" + sfx
		name := "guest-" + sfx[len(sfx)-6:]

		_, _ = db.Exec(`INSERT INTO users (id, email, name, role, created_at)
		                VALUES ($1,$2,$3,'guest',$4)`, userID, userID+"@guest.local", name, time.Now().Unix())

		tok, err := a.IssueJWT(userID, "guest", "", name)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		setGuestCookie(w, userID)
		_ = json.NewEncoder(w).Encode(out{AccessToken: tok, Name: name})
	}
}

func setGuestCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "imj_guest_id",
		Value:    userID,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}
