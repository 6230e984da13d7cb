package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"repRivalAPI/internal/catalog"
	"repRivalAPI/internal/types/challenge"
	"repRivalAPI/middleware"
	"repRivalAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

// GetCatalog lists the shipped challenge definitions. No auth required.
func (h *ChallengeHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, catalog.ListDefinitions())
}

func (h *ChallengeHandler) GetExercises(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, catalog.ListExercises())
}

func (h *ChallengeHandler) JoinChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChallengeID == "" {
		respondWithError(w, http.StatusBadRequest, "challengeId is required")
		return
	}

	instanceID, err := h.challengeService.Join(ctx, clerkID, req.ChallengeID)
	if err != nil {
		respondWithChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"userChallengeId": instanceID.String()})
}

func (h *ChallengeHandler) CreateCustomChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.CreateCustomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ExerciseID == "" {
		respondWithError(w, http.StatusBadRequest, "exerciseId is required")
		return
	}

	instanceID, err := h.challengeService.CreateCustom(ctx, clerkID, &req)
	if err != nil {
		respondWithChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"userChallengeId": instanceID.String()})
}

func (h *ChallengeHandler) GetActiveChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	active, err := h.challengeService.ListActive(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, active)
}

func (h *ChallengeHandler) ValidateDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	instanceID, err := uuid.Parse(mux.Vars(r)["userChallengeId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid userChallengeId")
		return
	}

	var req challenge.ValidateDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Reps <= 0 {
		respondWithError(w, http.StatusBadRequest, "reps must be positive")
		return
	}

	validationDate := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		if parsed.After(time.Now()) {
			respondWithError(w, http.StatusBadRequest, "date cannot be in the future")
			return
		}
		validationDate = parsed
	}

	updated, err := h.challengeService.ValidateDay(ctx, clerkID, instanceID, req.Reps, validationDate)
	if err != nil {
		log.Printf("ValidateDay Handler: %v", err)
		middleware.CountDayValidation(validationOutcome(err))
		respondWithChallengeError(w, err)
		return
	}

	middleware.CountDayValidation("success")
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ChallengeHandler) AbandonChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	instanceID, err := uuid.Parse(mux.Vars(r)["userChallengeId"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid userChallengeId")
		return
	}

	if err := h.challengeService.Abandon(ctx, clerkID, instanceID); err != nil {
		respondWithChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge abandoned"})
}

func validationOutcome(err error) string {
	switch {
	case errors.Is(err, challenge.ErrAlreadyValidated):
		return "duplicate"
	case errors.Is(err, challenge.ErrNotActive):
		return "not_active"
	default:
		return "error"
	}
}

// respondWithChallengeError maps domain errors to status codes; anything
// unrecognized is treated as a transient infrastructure failure.
func respondWithChallengeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, challenge.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, challenge.ErrLimitExceeded),
		errors.Is(err, challenge.ErrAlreadyActive),
		errors.Is(err, challenge.ErrNotActive):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, challenge.ErrAlreadyValidated):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, challenge.ErrFutureDate):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, challenge.ErrDefinitionMissing):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
