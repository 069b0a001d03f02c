package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/feldspar-labs/vitalsync/internal/core/domain"
	"github.com/feldspar-labs/vitalsync/internal/core/ports/driving"
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

// CreateRecordRequest is the manual record creation payload
// @Description Manual health record creation request
type CreateRecordRequest struct {
	Date     string `json:"date" example:"2024-03-01"`
	Steps    int    `json:"steps" example:"7500"`
	Calories int    `json:"calories" example:"420"`
}

// SyncResponse is the interactive sync response body
// @Description Result of an interactive sync pass
type SyncResponse struct {
	Steps    int  `json:"steps" example:"10342"`
	Calories int  `json:"calories" example:"512"`
	NoData   bool `json:"no_data"`
	Synced   bool `json:"synced" example:"true"`
}

// CronSyncResponse is the scheduled sync response body
// @Description Result of a scheduled sync pass
type CronSyncResponse struct {
	Success   bool      `json:"success" example:"true"`
	Steps     int       `json:"steps" example:"10342"`
	Calories  int       `json:"calories" example:"512"`
	NoData    bool      `json:"no_data"`
	Timestamp time.Time `json:"timestamp"`
}

// CronErrorResponse carries the failure detail for the scheduled trigger
// @Description Scheduled sync failure response
type CronErrorResponse struct {
	Error   string `json:"error" example:"sync failed"`
	Details string `json:"details" example:"fitness data fetch failed"`
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
// @Failure      503  {object}  ErrorResponse  "A backend is unreachable"
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

// Consent flow endpoints

// handleConnect godoc
// @Summary      Start provider consent flow
// @Description  Generates CSRF state and redirects the browser to the provider consent screen
// @Tags         Connect
// @Success      302  "Redirect to the provider consent URL"
// @Failure      500  {object}  ErrorResponse  "Failed to start the flow"
// @Router       /connect [get]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	resp, err := s.connectService.BeginAuthorization(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}
	http.Redirect(w, r, resp.ConsentURL, http.StatusFound)
}

// handleConnectCallback godoc
// @Summary      Provider consent callback
// @Description  Exchanges the one-time code for tokens and redirects back to the app. Errors redirect with an error query parameter instead of rendering a response.
// @Tags         Connect
// @Param        code   query  string  false  "One-time authorization code"
// @Param        state  query  string  true   "CSRF state"
// @Success      302  "Redirect back to the app"
// @Router       /connect/callback [get]
func (s *Server) handleConnectCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	// The provider reports consent denial via error/no code; the browser
	// still deserves a landing page, so failures redirect rather than 4xx.
	if code == "" {
		s.redirectWithError(w, r, "no_code")
		return
	}

	err := s.connectService.CompleteAuthorization(r.Context(), driving.CallbackRequest{
		Code:      code,
		State:     state,
		SessionID: GetSessionID(r.Context()),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			s.redirectWithError(w, r, "invalid_state")
			return
		}
		s.redirectWithError(w, r, "oauth_failed")
		return
	}

	http.Redirect(w, r, s.redirectBase+"?connected=true", http.StatusFound)
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, s.redirectBase+"?error="+url.QueryEscape(code), http.StatusFound)
}

// handleDisconnect godoc
// @Summary      Disconnect the provider
// @Description  Clears the session's stored credential. The provider-side grant is not revoked.
// @Tags         Connect
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      401  {object}  ErrorResponse  "No session"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /disconnect [post]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.connectService.Disconnect(r.Context(), GetSessionID(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// Sync endpoints

// handleSync godoc
// @Summary      Interactive sync
// @Description  Runs one sync pass for today using the browser session's credential
// @Tags         Sync
// @Produce      json
// @Success      200  {object}  SyncResponse
// @Failure      401  {object}  ErrorResponse  "No usable credential - the consent flow must run"
// @Failure      500  {object}  ErrorResponse  "Sync failed"
// @Router       /sync [get]
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncService.Sync(r.Context(), driving.SyncRequest{
		Identity: GetSessionID(r.Context()),
		Store:    s.sessionCredentials,
	})
	if err != nil {
		s.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Steps:    result.Steps,
		Calories: result.Calories,
		NoData:   result.NoData,
		Synced:   true,
	})
}

// handleCronSync godoc
// @Summary      Scheduled sync
// @Description  Runs one sync pass for today using the durable credential. Guarded by the cron secret.
// @Tags         Sync
// @Produce      json
// @Security     CronSecret
// @Success      200  {object}  CronSyncResponse
// @Failure      401  {object}  ErrorResponse  "Missing or wrong cron secret, or no usable credential"
// @Failure      500  {object}  CronErrorResponse  "Sync failed"
// @Router       /cron/sync [get]
func (s *Server) handleCronSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncService.Sync(r.Context(), driving.SyncRequest{
		Identity: domain.CredentialIdentityDefault,
		Store:    s.durableCredentials,
	})
	if err != nil {
		s.writeCronSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CronSyncResponse{
		Success:   true,
		Steps:     result.Steps,
		Calories:  result.Calories,
		NoData:    result.NoData,
		Timestamp: result.Timestamp,
	})
}

func (s *Server) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "authorization required")
	case errors.Is(err, domain.ErrRefreshFailed):
		writeError(w, http.StatusUnauthorized, "credential expired, re-authorization required")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "provider rejected the credential")
	default:
		writeError(w, http.StatusInternalServerError, "sync failed")
	}
}

// writeCronSyncError reports scheduled-trigger failures with a details field
// so the cron run log carries the cause. Only a missing credential maps to
// 401; everything else is a 500 for the operator to investigate.
func (s *Server) writeCronSyncError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrAuthRequired) {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	writeJSON(w, http.StatusInternalServerError, CronErrorResponse{
		Error:   "sync failed",
		Details: err.Error(),
	})
}

// Record endpoints

// handleListRecords godoc
// @Summary      List health records
// @Description  Returns records newest first. days bounds the trailing window; days=0 returns everything.
// @Tags         Records
// @Produce      json
// @Param        days  query     int  false  "Trailing window in days (default 30, 0 for all)"
// @Success      200   {array}   domain.HealthRecord
// @Failure      400   {object}  ErrorResponse  "Invalid days parameter"
// @Failure      500   {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/health/records [get]
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = parsed
	}

	records, err := s.healthService.ListRecords(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []*domain.HealthRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleCreateRecord godoc
// @Summary      Create a manual health record
// @Description  Inserts a manually entered record for a day. Fails with 409 when the day already has one.
// @Tags         Records
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRecordRequest  true  "Record to create"
// @Success      201      {object}  domain.HealthRecord
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      409      {object}  ErrorResponse  "Record exists for that day"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/health/records [post]
func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	record, err := s.healthService.CreateManualRecord(r.Context(), date, req.Steps, req.Calories)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid record")
		case errors.Is(err, domain.ErrAlreadyExists):
			writeError(w, http.StatusConflict, "record exists for that day")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create record")
		}
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// handleDeleteRecord godoc
// @Summary      Delete a health record
// @Description  Removes a record by ID
// @Tags         Records
// @Produce      json
// @Param        id  path      string  true  "Record ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Record not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /api/v1/health/records/{id} [delete]
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.healthService.DeleteRecord(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "record not found")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid record id")
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete record")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
