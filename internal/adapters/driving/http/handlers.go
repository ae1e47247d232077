package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pulsehub-labs/pulsehub-core/internal/core/domain"
	"github.com/pulsehub-labs/pulsehub-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks database and Redis connections)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "A backing store is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth endpoints

// handleLogin godoc
// @Summary      User login
// @Description  Authenticate with email and password to receive a JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.LoginRequest  true  "Login credentials"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials or account disabled"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.Authenticate(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case domain.ErrUnauthorized:
			writeError(w, http.StatusUnauthorized, "account disabled")
		default:
			writeError(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRefresh godoc
// @Summary      Refresh token
// @Description  Exchange a refresh token for a new JWT token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  domain.LoginResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid refresh token"
// @Router       /auth/refresh [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.RefreshToken(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleLogout godoc
// @Summary      Logout user
// @Description  Invalidate the current session token
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	_ = s.authService.Logout(r.Context(), token)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChangePassword godoc
// @Summary      Change password
// @Description  Change the authenticated user's password. All sessions are revoked.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ChangePasswordRequest  true  "Current and new password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body or weak password"
// @Failure      401      {object}  ErrorResponse  "Current password incorrect"
// @Router       /auth/password [post]
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.authService.ChangePassword(r.Context(), authCtx.UserID, req); err != nil {
		switch err {
		case domain.ErrInvalidCredentials:
			writeError(w, http.StatusUnauthorized, "current password incorrect")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid password")
		default:
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Setup endpoint (no auth required, one-time use)

// handleSetup godoc
// @Summary      Initial setup
// @Description  Create the initial admin user. This endpoint can only be called once when no users exist.
// @Tags         Setup
// @Accept       json
// @Produce      json
// @Param        request  body      driving.SetupRequest  true  "Admin user details"
// @Success      201      {object}  driving.SetupResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      403      {object}  ErrorResponse  "Setup already complete"
// @Failure      500      {object}  ErrorResponse  "Setup failed"
// @Router       /setup [post]
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req driving.SetupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.userService.Setup(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "email, password, and name are required")
		case domain.ErrForbidden:
			writeError(w, http.StatusForbidden, "setup already complete")
		default:
			writeError(w, http.StatusInternalServerError, "setup failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// User endpoints

// handleGetMe godoc
// @Summary      Get current user
// @Description  Get the currently authenticated user's profile
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /me [get]
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.userService.Get(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// handleListUsers godoc
// @Summary      List all users
// @Description  Get a list of all users (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.UserSummary
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Forbidden - admin only"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	summaries := make([]*domain.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.ToSummary()
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleCreateUser godoc
// @Summary      Create user
// @Description  Create a new user (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateUserRequest  true  "User details"
// @Success      201      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      409      {object}  ErrorResponse  "User already exists"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /users [post]
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Create(r.Context(), req)
	if err != nil {
		switch err {
		case domain.ErrAlreadyExists:
			writeError(w, http.StatusConflict, "user already exists")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, user.ToSummary())
}

// handleUpdateUser godoc
// @Summary      Update user
// @Description  Update a user's name, role, or active flag (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                     true  "User ID"
// @Param        request  body      driving.UpdateUserRequest  true  "Fields to update"
// @Success      200      {object}  domain.UserSummary
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      404      {object}  ErrorResponse  "User not found"
// @Router       /users/{id} [put]
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req driving.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.userService.Update(r.Context(), id, req)
	if err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid input")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update user")
		}
		return
	}

	writeJSON(w, http.StatusOK, user.ToSummary())
}

// setPasswordRequest carries a new password for a user.
type setPasswordRequest struct {
	Password string `json:"password"`
}

// handleSetUserPassword godoc
// @Summary      Set user password
// @Description  Set a new password for a user, revoking their sessions (admin only)
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "User ID"
// @Param        request  body      setPasswordRequest  true  "New password"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid input"
// @Failure      404      {object}  ErrorResponse  "User not found"
// @Router       /users/{id}/password [put]
func (s *Server) handleSetUserPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.userService.SetPassword(r.Context(), id, req.Password); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		case domain.ErrInvalidInput:
			writeError(w, http.StatusBadRequest, "invalid password")
		default:
			writeError(w, http.StatusInternalServerError, "failed to set password")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDeleteUser godoc
// @Summary      Delete user
// @Description  Delete a user by ID (admin only)
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "User not found"
// @Router       /users/{id} [delete]
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if err := s.userService.Delete(r.Context(), id); err != nil {
		switch err {
		case domain.ErrNotFound:
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete user")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// OAuth endpoints

// connectRequest carries optional settings for a new connection.
type connectRequest struct {
	DisplayName string `json:"display_name,omitempty" example:"Brand account"`
}

// handleConnect godoc
// @Summary      Connect a platform account
// @Description  Start an OAuth authorization flow for a social platform. Returns the URL to redirect the user to.
// @Tags         OAuth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        platform  path      string          true   "Platform name (facebook, instagram, twitter, linkedin, tiktok)"
// @Param        request   body      connectRequest  false  "Optional connection settings"
// @Success      200       {object}  driving.AuthorizeResponse
// @Failure      400       {object}  ErrorResponse  "Unknown platform"
// @Failure      404       {object}  ErrorResponse  "Platform not configured"
// @Router       /social/{platform}/connect [post]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	platform, err := domain.ParsePlatform(r.PathValue("platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown platform")
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && r.ContentLength > 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.oauthService.Authorize(r.Context(), driving.AuthorizeRequest{
		Platform:    platform,
		UserID:      authCtx.UserID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		var oauthErr *driving.OAuthError
		if errors.As(err, &oauthErr) && oauthErr.Code == driving.ErrOAuthPlatformNotFound.Code {
			writeError(w, http.StatusNotFound, "platform not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleOAuthCallback godoc
// @Summary      OAuth callback
// @Description  Receives the platform's redirect after authorization and redirects the browser back to the dashboard.
// @Tags         OAuth
// @Param        code   query  string  false  "Authorization code"
// @Param        state  query  string  true   "CSRF state token"
// @Param        error  query  string  false  "Platform error code"
// @Success      302  "Redirect to the dashboard connections page"
// @Router       /oauth/callback [get]
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := s.oauthService.Callback(r.Context(), driving.CallbackRequest{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})

	values := url.Values{}
	if err != nil {
		values.Set("status", "error")
		var oauthErr *driving.OAuthError
		if errors.As(err, &oauthErr) {
			values.Set("error", oauthErr.Code)
		} else {
			values.Set("error", "internal_error")
		}
	} else {
		values.Set("status", "connected")
		values.Set("platform", string(resp.Credential.Platform))
		values.Set("credential_id", resp.Credential.ID)
	}

	http.Redirect(w, r, s.frontendURL+"/connections?"+values.Encode(), http.StatusFound)
}

// Token endpoints

// handleListTokens godoc
// @Summary      List stored tokens
// @Description  List the caller's platform credentials. Access tokens are reduced to a short prefix.
// @Tags         Tokens
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.CredentialSummary
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /tokens [get]
func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := s.credentialService.List(r.Context(), authCtx.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleGetToken godoc
// @Summary      Get a stored token
// @Description  Get a single credential summary by ID
// @Tags         Tokens
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Credential ID"
// @Success      200  {object}  domain.CredentialSummary
// @Failure      404  {object}  ErrorResponse  "Credential not found"
// @Router       /tokens/{id} [get]
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := s.credentialService.Get(r.Context(), authCtx.UserID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get credential")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleDeleteToken godoc
// @Summary      Delete a stored token
// @Description  Permanently remove a credential. The platform-side grant is not revoked.
// @Tags         Tokens
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Credential ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Credential not found"
// @Router       /tokens/{id} [delete]
func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.credentialService.Delete(r.Context(), authCtx.UserID, r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete credential")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// refreshTokensRequest selects which credential to refresh. When
// CredentialID is empty every expiring credential is swept.
type refreshTokensRequest struct {
	CredentialID string `json:"credential_id,omitempty"`
}

// handleRefreshTokens godoc
// @Summary      Refresh tokens
// @Description  Refresh a single credential by ID, or sweep all of the caller's expiring credentials when no ID is given.
// @Tags         Tokens
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      refreshTokensRequest  false  "Credential to refresh"
// @Success      200      {array}   driving.RefreshResult
// @Failure      404      {object}  ErrorResponse  "Credential not found"
// @Failure      409      {object}  ErrorResponse  "No refresh token or refresh already in progress"
// @Failure      502      {object}  ErrorResponse  "Platform rejected the refresh"
// @Router       /tokens/refresh [post]
func (s *Server) handleRefreshTokens(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req refreshTokensRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && r.ContentLength > 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CredentialID == "" {
		results, err := s.credentialService.RefreshExpiring(r.Context(), authCtx.UserID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to refresh tokens")
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	result, err := s.credentialService.Refresh(r.Context(), authCtx.UserID, req.CredentialID)
	if err != nil {
		var refreshErr *domain.RefreshError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "credential not found")
		case errors.Is(err, domain.ErrNoRefreshToken):
			writeError(w, http.StatusConflict, "credential has no refresh token")
		case errors.Is(err, domain.ErrRefreshInProgress):
			writeError(w, http.StatusConflict, "refresh already in progress")
		case errors.As(err, &refreshErr):
			writeError(w, http.StatusBadGateway, refreshErr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to refresh token")
		}
		return
	}

	writeJSON(w, http.StatusOK, []*driving.RefreshResult{result})
}

// handleValidateToken godoc
// @Summary      Validate a stored token
// @Description  Probe the platform with the credential's access token and report whether it is still accepted.
// @Tags         Tokens
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Credential ID"
// @Success      200  {object}  driving.ValidationResult
// @Failure      404  {object}  ErrorResponse  "Credential not found"
// @Router       /tokens/{id}/validate [post]
func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := s.credentialService.Validate(r.Context(), authCtx.UserID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to validate credential")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Dispatch endpoint

// dispatchRequest wraps the payload forwarded to the platform.
type dispatchRequest struct {
	CredentialID string          `json:"credential_id,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// handleDispatch godoc
// @Summary      Call a platform API
// @Description  Route a logical operation (profile, post, analytics) to the platform. The body's credential_id selects a stored credential; when omitted the caller's active credential for the platform is used. The token is refreshed first when needed and the platform's JSON reply is returned verbatim.
// @Tags         Dispatch
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        platform   path      string           true   "Platform name"
// @Param        operation  path      string           true   "Operation (profile, post, analytics)"
// @Param        request    body      dispatchRequest  false  "Operation payload"
// @Success      200        {object}  object  "Platform response body"
// @Failure      400        {object}  ErrorResponse  "Unknown platform or unsupported operation"
// @Failure      404        {object}  ErrorResponse  "Credential not found"
// @Failure      409        {object}  ErrorResponse  "No usable credential"
// @Failure      429        {object}  ErrorResponse  "Rate limit window exhausted"
// @Failure      502        {object}  ErrorResponse  "Platform call failed"
// @Router       /social/{platform}/{operation} [post]
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	platform, err := domain.ParsePlatform(r.PathValue("platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown platform")
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && r.ContentLength > 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.dispatchService.Dispatch(r.Context(), driving.DispatchRequest{
		Platform:     platform,
		CredentialID: req.CredentialID,
		Operation:    domain.Operation(r.PathValue("operation")),
		UserID:       authCtx.UserID,
		Payload:      req.Payload,
	})
	if err != nil {
		var rateLimited *domain.RateLimitedError
		var dispatchErr *domain.DispatchError
		switch {
		case errors.Is(err, domain.ErrUnsupportedOperation):
			writeError(w, http.StatusBadRequest, "unsupported operation")
		case errors.Is(err, domain.ErrPlatformNotConfigured), errors.Is(err, domain.ErrUnknownPlatform):
			writeError(w, http.StatusBadRequest, "platform not configured")
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "credential not found")
		case errors.Is(err, domain.ErrCredentialUnusable):
			writeError(w, http.StatusConflict, "no usable credential for platform")
		case errors.Is(err, domain.ErrNoRefreshToken):
			writeError(w, http.StatusConflict, "credential expired with no refresh token")
		case errors.As(err, &rateLimited):
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
			writeError(w, http.StatusTooManyRequests, rateLimited.Error())
		case errors.As(err, &dispatchErr):
			writeError(w, http.StatusBadGateway, dispatchErr.Error())
		default:
			writeError(w, http.StatusInternalServerError, "dispatch failed")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
