package httpx

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/mbolis/surveyflow/config"
)

// RefreshTokenTTL bounds how long a refresh token can be traded for a new
// access token.
const RefreshTokenTTL = 365 * 24 * time.Hour

var errNoRefresh = errors.New("could not refresh")

type credentialsVerifier struct {
	db  *sql.DB
	now func() time.Time
}

// NewBearerServer issues and refreshes tokens for the users of db.
func NewBearerServer(db *sql.DB, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(db), nil)
}

func CredentialsVerifier(db *sql.DB) oauth.CredentialsVerifier {
	return &credentialsVerifier{db, time.Now}
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	var hash []byte
	err := cs.db.
		QueryRow("SELECT password_hash FROM user WHERE username=?", username).
		Scan(&hash)
	if err != nil {
		return err
	}

	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	_, err := cs.db.Exec(
		"INSERT INTO token (username, token_id, refresh_token_id, expiration) VALUES (?, ?, ?, ?)",
		credential,
		tokenID,
		refreshTokenID,
		cs.now().Add(RefreshTokenTTL),
	)
	return err
}

// ValidateTokenID consumes a refresh token: each one is good for one refresh.
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	var expiration time.Time
	err := cs.db.
		QueryRow(`
			DELETE FROM token
			WHERE username = ?
				AND token_id = ?
				AND refresh_token_id = ?
			RETURNING expiration`,
			credential,
			tokenID,
			refreshTokenID,
		).
		Scan(&expiration)
	if err != nil {
		return errNoRefresh
	}

	if expiration.Before(cs.now()) {
		return errNoRefresh
	}
	return nil
}

// AddClaims puts the user's roles in the token, "admin" for administrators.
func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	var isAdmin bool
	err := cs.db.
		QueryRow("SELECT is_admin FROM user WHERE username=?", credential).
		Scan(&isAdmin)
	if err != nil {
		return nil, err
	}

	claims := map[string]string{"roles": "respondent"}
	if isAdmin {
		claims["roles"] = "admin,respondent"
	}
	return claims, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
