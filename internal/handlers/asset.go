package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/packrat-app/packrat/internal/metrics"
	"github.com/packrat-app/packrat/internal/middleware"
	"github.com/packrat-app/packrat/internal/models"
	"github.com/packrat-app/packrat/internal/repo"
)

type AssetHandler struct {
	Repo  *repo.AssetRepo
	Audit *repo.AuditRepo
}

// audit writes the trail entry; failures are logged, never surfaced, so a
// broken audit table cannot block asset writes.
func (h *AssetHandler) audit(r *http.Request, userID, action, assetID, details string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Log(r.Context(), userID, action, assetID, details); err != nil {
		slog.Error("audit log failed", "action", action, "asset_id", assetID, "error", err)
	}
}

//
// ==========================
// Create Asset
// ==========================
//

func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var input struct {
		Name        string   `json:"name" validate:"required,max=255"`
		Description string   `json:"description" validate:"required,max=2000"`
		Location    string   `json:"location" validate:"max=255"`
		Attachments []string `json:"attachments" validate:"dive,max=2048"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	// ===== Validate input (after trimming, so "  " is still missing) =====
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		JSONValidationError(w, "validation failed", validationFields(err), http.StatusBadRequest)
		return
	}

	if input.Attachments == nil {
		input.Attachments = []string{}
	}

	asset, err := h.Repo.Create(r.Context(), userID, models.AssetFields{
		Name:        &input.Name,
		Description: &input.Description,
		Location:    &input.Location,
		Attachments: input.Attachments,
	})
	if err != nil {
		slog.Error("create asset failed", "error", err)
		JSONError(w, "failed to create asset", http.StatusInternalServerError)
		return
	}

	metrics.IncAssetMutations("create")
	h.audit(r, userID, "create", asset.ID, asset.Name)

	JSONWrite(w, asset, http.StatusCreated)
}

//
// ==========================
// List Assets
// ==========================
//

func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	assets, err := h.Repo.List(r.Context(), userID)
	if err != nil {
		slog.Error("list assets failed", "error", err)
		JSONError(w, "failed to fetch assets", http.StatusInternalServerError)
		return
	}

	JSONWrite(w, assets, http.StatusOK)
}

//
// ==========================
// Get Asset By ID
// ==========================
//

func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	asset, err := h.Repo.Get(r.Context(), userID, id)
	if err != nil {
		slog.Error("get asset failed", "asset_id", id, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if asset == nil {
		JSONError(w, "asset not found", http.StatusNotFound)
		return
	}

	JSONWrite(w, asset, http.StatusOK)
}

//
// ==========================
// Update Asset (partial; absent fields stay untouched)
// ==========================
//

func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	var input models.AssetFields
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	fields := map[string]string{}
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			fields["name"] = "name is required"
		}
		input.Name = &trimmed
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		if trimmed == "" {
			fields["description"] = "description is required"
		}
		input.Description = &trimmed
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	asset, err := h.Repo.Update(r.Context(), userID, id, input)
	if err != nil {
		slog.Error("update asset failed", "asset_id", id, "error", err)
		JSONError(w, "failed to update asset", http.StatusInternalServerError)
		return
	}
	if asset == nil {
		JSONError(w, "asset not found", http.StatusNotFound)
		return
	}

	metrics.IncAssetMutations("update")
	h.audit(r, userID, "update", asset.ID, asset.Name)

	JSONWrite(w, asset, http.StatusOK)
}

//
// ==========================
// Delete Asset
// ==========================
//

func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Repo.Delete(r.Context(), userID, id); err != nil {
		slog.Error("delete asset failed", "asset_id", id, "error", err)
		JSONError(w, "failed to delete asset", http.StatusInternalServerError)
		return
	}

	metrics.IncAssetMutations("delete")
	h.audit(r, userID, "delete", id, "")

	w.WriteHeader(http.StatusNoContent)
}

// validationFields flattens validator errors into a field -> message map.
func validationFields(err error) map[string]string {
	fields := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fields
	}
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "max":
			fields[name] = name + " is too long"
		default:
			fields[name] = name + " is invalid"
		}
	}
	return fields
}
