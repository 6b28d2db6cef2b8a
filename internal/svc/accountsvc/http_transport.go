package accountsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mkrupp/homecase-accounts/internal/domain"
	"github.com/mkrupp/homecase-accounts/internal/infra/logging"
	http_ "github.com/mkrupp/homecase-accounts/internal/infra/transport/http"
)

const maxBodyBytes = 1 << 20

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest is the body of PUT /me/password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UpdateRequest is the body of PUT /users/{username}. Empty fields are left unchanged.
type UpdateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangeRoleRequest is the body of PUT /users/{username}/role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// HTTPTransport handles HTTP requests for the account service.
type HTTPTransport struct {
	accountSvc AccountService
	log        logging.Logger
	cfg        HTTPTransportConfig
	mux        *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and registers its routes:
//   - POST /register: create a regular account
//   - POST /login: exchange credentials for a session token
//   - POST /logout: revoke the session
//   - POST /auth/validate: return the username of the session
//   - GET /me: the session's account
//   - PUT /me/password: change the session's password
//   - GET /users?query=: list accounts
//   - GET /admin/users?query=: list accounts (admin)
//   - PUT /users/{username}: update email and/or password (admin)
//   - PUT /users/{username}/role: change role (admin)
//   - DELETE /users/{username}: delete account (admin)
//
// All but register and login require a session token in the Authorization header.
func NewHTTPTransport(accountSvc AccountService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		accountSvc: accountSvc,
		log:        logging.GetLogger("svc.accountsvc.http_transport"),
		cfg:        cfg,
		mux:        http.NewServeMux(),
	}

	ht.mux.HandleFunc("POST /register", ht.HandleRegister)
	ht.mux.HandleFunc("POST /login", ht.HandleLogin)
	ht.mux.Handle("POST /logout", ht.authorized(ht.HandleLogout))
	ht.mux.Handle("POST /auth/validate", ht.authorized(ht.HandleValidate))
	ht.mux.Handle("GET /me", ht.authorized(ht.HandleProfile))
	ht.mux.Handle("PUT /me/password", ht.authorized(ht.HandleChangePassword))
	ht.mux.Handle("GET /users", ht.authorized(ht.HandleList))
	ht.mux.Handle("GET /admin/users", ht.authorized(ht.HandleListAll))
	ht.mux.Handle("PUT /users/{username}", ht.authorized(ht.HandleUpdate))
	ht.mux.Handle("PUT /users/{username}/role", ht.authorized(ht.HandleChangeRole))
	ht.mux.Handle("DELETE /users/{username}", ht.authorized(ht.HandleDelete))

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.mux.ServeHTTP(w, r)
}

func (ht *HTTPTransport) authorized(handler http.HandlerFunc) http.Handler {
	return http_.AuthorizingMiddleware(handler, ht.accountSvc, ht.log)
}

// HandleRegister processes registration requests.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ht.fail(w, err)
	}

	log = log.With(logging.Group("user", "username", req.Username))

	if err := ht.accountSvc.RegisterUser(r.Context(), req.Username, req.Password, req.Email); err != nil {
		return ht.fail(w, fmt.Errorf("register user: %w", err))
	}

	return ht.respond(w, http.StatusCreated, http_.MessageResponse{Message: "User registered successfully"})
}

// HandleLogin processes login requests and returns a session token.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ht.fail(w, err)
	}

	log = log.With(logging.Group("user", "username", req.Username))

	if req.Username == "" || req.Password == "" {
		return ht.fail(w, domain.ErrMissingFields)
	}

	token, err := ht.accountSvc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		return ht.fail(w, fmt.Errorf("authenticate: %w", err))
	}

	profile, err := ht.accountSvc.Profile(r.Context(), token)
	if err != nil {
		return ht.fail(w, fmt.Errorf("profile: %w", err))
	}

	return ht.respond(w, http.StatusOK, domain.AuthTokenResponse{
		Token:    token,
		Username: profile.Username,
		Email:    profile.Email,
		Role:     profile.Role,
	})
}

// HandleLogout revokes the session in the Authorization header.
func (ht *HTTPTransport) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogout(w, r)
}

func (ht *HTTPTransport) handleLogout(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user logout failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged out")
		}
	}(r.Context())

	if err := ht.accountSvc.Logout(r.Context(), http_.BearerToken(r)); err != nil {
		return ht.fail(w, fmt.Errorf("logout: %w", err))
	}

	return ht.respond(w, http.StatusOK, http_.MessageResponse{Message: "Logged out"})
}

// HandleValidate returns the username associated with a valid token.
func (ht *HTTPTransport) HandleValidate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleValidate(w, r)
}

func (ht *HTTPTransport) handleValidate(w http.ResponseWriter, r *http.Request) (err error) {
	profile, err := ht.accountSvc.Profile(r.Context(), http_.BearerToken(r))
	if err != nil {
		return ht.fail(w, fmt.Errorf("profile: %w", err))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(profile.Username)); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// HandleProfile returns the session's account.
func (ht *HTTPTransport) HandleProfile(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleProfile(w, r)
}

func (ht *HTTPTransport) handleProfile(w http.ResponseWriter, r *http.Request) error {
	profile, err := ht.accountSvc.Profile(r.Context(), http_.BearerToken(r))
	if err != nil {
		return ht.fail(w, fmt.Errorf("profile: %w", err))
	}

	return ht.respond(w, http.StatusOK, profile)
}

// HandleChangePassword changes the password of the session's account.
func (ht *HTTPTransport) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleChangePassword(w, r)
}

func (ht *HTTPTransport) handleChangePassword(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "change password failed", "error", err)
		} else {
			log.DebugContext(ctx, "password changed")
		}
	}(r.Context())

	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ht.fail(w, err)
	}

	if err := ht.accountSvc.ChangePassword(r.Context(), http_.BearerToken(r), req.OldPassword, req.NewPassword); err != nil {
		return ht.fail(w, fmt.Errorf("change password: %w", err))
	}

	return ht.respond(w, http.StatusOK, http_.MessageResponse{Message: "Password changed"})
}

// HandleList returns the accounts whose username contains the query parameter.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.respond(w, http.StatusOK, ht.accountSvc.List(r.Context(), r.URL.Query().Get("query")))
}

// HandleListAll is the admin variant of HandleList.
func (ht *HTTPTransport) HandleListAll(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListAll(w, r)
}

func (ht *HTTPTransport) handleListAll(w http.ResponseWriter, r *http.Request) error {
	views, err := ht.accountSvc.ListAll(r.Context(), http_.BearerToken(r), r.URL.Query().Get("query"))
	if err != nil {
		return ht.fail(w, fmt.Errorf("list all: %w", err))
	}

	return ht.respond(w, http.StatusOK, views)
}

// HandleUpdate changes the email and/or password of an account.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	username := r.PathValue("username")
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("user", "username", username),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user update failed", "error", err)
		} else {
			log.DebugContext(ctx, "user updated")
		}
	}(r.Context())

	var req UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ht.fail(w, err)
	}

	if err := ht.accountSvc.Update(r.Context(), http_.BearerToken(r), username, req.Email, req.Password); err != nil {
		return ht.fail(w, fmt.Errorf("update: %w", err))
	}

	return ht.respond(w, http.StatusOK, http_.MessageResponse{Message: "User updated"})
}

// HandleChangeRole changes the role of an account.
func (ht *HTTPTransport) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleChangeRole(w, r)
}

func (ht *HTTPTransport) handleChangeRole(w http.ResponseWriter, r *http.Request) (err error) {
	username := r.PathValue("username")
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("user", "username", username),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "role change failed", "error", err)
		} else {
			log.DebugContext(ctx, "role changed")
		}
	}(r.Context())

	var req ChangeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return ht.fail(w, err)
	}

	if err := ht.accountSvc.ChangeRole(r.Context(), http_.BearerToken(r), username, req.Role); err != nil {
		return ht.fail(w, fmt.Errorf("change role: %w", err))
	}

	return ht.respond(w, http.StatusOK, http_.MessageResponse{Message: "Role updated"})
}

// HandleDelete deletes an account.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	username := r.PathValue("username")
	log := ht.log.With(
		logging.Group("http", "method", r.Method, "url", r.URL.String()),
		logging.Group("user", "username", username),
	)

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "user delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "user deleted")
		}
	}(r.Context())

	if err := ht.accountSvc.Delete(r.Context(), http_.BearerToken(r), username); err != nil {
		return ht.fail(w, fmt.Errorf("delete: %w", err))
	}

	return ht.respond(w, http.StatusOK, http_.MessageResponse{Message: "User deleted"})
}

// fail writes the error response for err and returns err.
func (ht *HTTPTransport) fail(w http.ResponseWriter, err error) error {
	http_.WriteError(w, StatusCode(err), Message(err))

	return err
}

func (ht *HTTPTransport) respond(w http.ResponseWriter, status int, v any) error {
	if err := http_.WriteJSON(w, status, v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %w", domain.ErrValidation, err)
	}

	return nil
}
