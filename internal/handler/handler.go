// Package handler содержит HTTP-обработчики API сервиса ShopGreen.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shopgreen/shopgreen-system/internal/middleware"
	"github.com/shopgreen/shopgreen-system/internal/model"
	"github.com/shopgreen/shopgreen-system/internal/moderation"
	"github.com/shopgreen/shopgreen-system/internal/repository"
	"github.com/shopgreen/shopgreen-system/internal/schedule"
	"github.com/shopgreen/shopgreen-system/internal/service"
	"github.com/shopgreen/shopgreen-system/internal/validation"
	"github.com/shopgreen/shopgreen-system/internal/verification"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (*model.User, error)
	SubmitShop(ctx context.Context, shop *model.Shop) (int64, error)
	GetShop(ctx context.Context, id int64) (*service.ShopView, error)
	ListShops(ctx context.Context, filter repository.ShopFilter) ([]service.ShopView, error)
	UpdateShop(ctx context.Context, actorID int64, actorRole model.Role, shop *model.Shop) error
	DeleteShop(ctx context.Context, id int64) error
	CastVote(ctx context.Context, shopID, userID int64, positive bool) (verification.VoteResult, error)
	GetVoteSummary(ctx context.Context, shopID int64) (*service.VoteSummary, error)
	SubmitClaim(ctx context.Context, shopID, userID int64) error
	ResolveClaim(ctx context.Context, shopID int64, decision moderation.Decision) error
	ModerationQueue(ctx context.Context) ([]model.ModerationQueueItem, error)
	AddFavorite(ctx context.Context, userID, shopID int64) error
	RemoveFavorite(ctx context.Context, userID, shopID int64) error
	GetFavorites(ctx context.Context, userID int64) ([]service.ShopView, error)
	CreateSellerProfile(ctx context.Context, actorID int64, actorRole model.Role, seller *model.Seller) (int64, error)
	ListSellers(ctx context.Context, filter repository.SellerFilter) ([]model.Seller, error)
}

// Handler реализует HTTP-обработчики API сервиса ShopGreen.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	role := model.Role(req.Role)
	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		if err.Error() == "invalid role" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if role == "" {
		role = model.RoleUser
	}
	h.authMiddleware.SetAuthCookie(w, userID, role)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.ID, user.Role)
	w.WriteHeader(http.StatusOK)
}

type shopRequest struct {
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Address     string        `json:"address"`
	Lat         float64       `json:"lat"`
	Lng         float64       `json:"lng"`
	ImageURL    string        `json:"image_url"`
	Website     string        `json:"website"`
	LicenseID   string        `json:"license_id"`
	Hours       schedule.Week `json:"hours"`
}

type shopResponse struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	Description   string        `json:"description,omitempty"`
	Address       string        `json:"address,omitempty"`
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	ImageURL      string        `json:"image_url,omitempty"`
	Website       string        `json:"website,omitempty"`
	LicenseID     string        `json:"license_id"`
	LicenseStatus string        `json:"license_status"`
	Hours         schedule.Week `json:"hours"`
	Score         int           `json:"score"`
	Tier          string        `json:"tier"`
	Status        string        `json:"status"`
	OwnerID       *int64        `json:"owner_id,omitempty"`
	CreatedAt     string        `json:"created_at"`
}

func toShopResponse(v service.ShopView) shopResponse {
	return shopResponse{
		ID:            v.ID,
		Name:          v.Name,
		Category:      string(v.Category),
		Description:   v.Description,
		Address:       v.Address,
		Lat:           v.Lat,
		Lng:           v.Lng,
		ImageURL:      v.ImageURL,
		Website:       v.Website,
		LicenseID:     v.LicenseID,
		LicenseStatus: string(v.LicenseStatus),
		Hours:         v.Hours,
		Score:         v.Score,
		Tier:          string(v.Tier()),
		Status:        string(v.Status),
		OwnerID:       v.OwnerID,
		CreatedAt:     v.CreatedAt.Format(time.RFC3339),
	}
}

// SubmitShop принимает новую запись магазина от текущего пользователя.
func (h *Handler) SubmitShop(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidLicenseID(req.LicenseID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	shop := &model.Shop{
		Name:        req.Name,
		Category:    model.Category(req.Category),
		Description: req.Description,
		Address:     req.Address,
		Lat:         req.Lat,
		Lng:         req.Lng,
		ImageURL:    req.ImageURL,
		Website:     req.Website,
		LicenseID:   req.LicenseID,
		Hours:       req.Hours,
		SubmittedBy: identity.UserID,
	}

	id, err := h.service.SubmitShop(r.Context(), shop)
	if err != nil {
		h.logger.Error("submit shop error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]int64{"id": id}); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// GetShop возвращает магазин с вычисленным статусом.
func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	view, err := h.service.GetShop(r.Context(), shopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get shop error", zap.Error(err), zap.Int64("shopID", shopID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toShopResponse(*view)); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// ListShops возвращает магазины каталога по необязательному фильтру.
func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	filter := repository.ShopFilter{
		Name:           r.URL.Query().Get("name"),
		Category:       model.Category(r.URL.Query().Get("category")),
		UnverifiedOnly: r.URL.Query().Get("unverified") == "true",
	}

	views, err := h.service.ListShops(r.Context(), filter)
	if err != nil {
		h.logger.Error("list shops error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]shopResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toShopResponse(v))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// UpdateShop обновляет запись магазина. Доступно владельцу магазина и оператору.
func (h *Handler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req shopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidLicenseID(req.LicenseID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	shop := &model.Shop{
		ID:          shopID,
		Name:        req.Name,
		Category:    model.Category(req.Category),
		Description: req.Description,
		Address:     req.Address,
		Lat:         req.Lat,
		Lng:         req.Lng,
		ImageURL:    req.ImageURL,
		Website:     req.Website,
		LicenseID:   req.LicenseID,
		Hours:       req.Hours,
	}

	err := h.service.UpdateShop(r.Context(), identity.UserID, identity.Role, shop)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrShopNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrForbidden):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		default:
			h.logger.Error("update shop error", zap.Error(err), zap.Int64("shopID", shopID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteShop удаляет запись магазина. Так оператор отклоняет новую
// непроверенную запись из очереди модерации.
func (h *Handler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteShop(r.Context(), shopID); err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete shop error", zap.Error(err), zap.Int64("shopID", shopID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type voteRequest struct {
	Positive bool `json:"positive"`
}

type voteResponse struct {
	Score int    `json:"score"`
	Tier  string `json:"tier"`
}

// CastVote регистрирует голос текущего пользователя за устойчивость магазина.
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	result, err := h.service.CastVote(r.Context(), shopID, identity.UserID, req.Positive)
	if err != nil {
		switch {
		case errors.Is(err, verification.ErrDuplicateVote):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, repository.ErrShopNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("cast vote error", zap.Error(err), zap.Int64("shopID", shopID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(voteResponse{Score: result.Score, Tier: string(result.Tier)}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type voteSummaryResponse struct {
	Score    int    `json:"score"`
	Tier     string `json:"tier"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
}

// GetVotes возвращает агрегированные итоги голосования по магазину.
func (h *Handler) GetVotes(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	summary, err := h.service.GetVoteSummary(r.Context(), shopID)
	if err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get votes error", zap.Error(err), zap.Int64("shopID", shopID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := voteSummaryResponse{
		Score:    summary.Score,
		Tier:     string(summary.Tier),
		Positive: summary.Positive,
		Negative: summary.Negative,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

// SubmitClaim подаёт заявку текущего пользователя на владение магазином.
func (h *Handler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.SubmitClaim(r.Context(), shopID, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, moderation.ErrClaimConflict):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, repository.ErrShopNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("submit claim error", zap.Error(err), zap.Int64("shopID", shopID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type resolveClaimRequest struct {
	Decision string `json:"decision"`
}

// ResolveClaim применяет решение оператора по ожидающей заявке на владение.
func (h *Handler) ResolveClaim(w http.ResponseWriter, r *http.Request) {
	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req resolveClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	decision := moderation.Decision(req.Decision)
	if decision != moderation.DecisionAccept && decision != moderation.DecisionReject {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.ResolveClaim(r.Context(), shopID, decision)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrShopNotFound), errors.Is(err, moderation.ErrNoPendingClaim):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("resolve claim error", zap.Error(err), zap.Int64("shopID", shopID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type queueItemResponse struct {
	ShopID        int64  `json:"shop_id"`
	ShopName      string `json:"shop_name"`
	Kind          string `json:"kind"`
	ImageURL      string `json:"image_url,omitempty"`
	LicenseID     string `json:"license_id"`
	LicenseStatus string `json:"license_status"`
	SubmittedBy   int64  `json:"submitted_by"`
	ClaimantID    *int64 `json:"claimant_id,omitempty"`
}

// ModerationQueue возвращает рабочий список оператора.
func (h *Handler) ModerationQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ModerationQueue(r.Context())
	if err != nil {
		h.logger.Error("moderation queue error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]queueItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, queueItemResponse{
			ShopID:        item.ShopID,
			ShopName:      item.ShopName,
			Kind:          string(item.Kind),
			ImageURL:      item.ImageURL,
			LicenseID:     item.LicenseID,
			LicenseStatus: string(item.LicenseStatus),
			SubmittedBy:   item.SubmittedBy,
			ClaimantID:    item.ClaimantID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type favoriteRequest struct {
	ShopID int64 `json:"shop_id"`
}

// AddFavorite добавляет магазин в избранное текущего пользователя.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShopID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	shopID := req.ShopID

	if err := h.service.AddFavorite(r.Context(), identity.UserID, shopID); err != nil {
		if errors.Is(err, repository.ErrShopNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("add favorite error", zap.Error(err), zap.Int64("shopID", shopID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RemoveFavorite удаляет магазин из избранного текущего пользователя.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	shopID, ok := shopIDFromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveFavorite(r.Context(), identity.UserID, shopID); err != nil {
		h.logger.Error("remove favorite error", zap.Error(err), zap.Int64("shopID", shopID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetFavorites возвращает избранные магазины текущего пользователя.
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	views, err := h.service.GetFavorites(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("get favorites error", zap.Error(err), zap.Int64("userID", identity.UserID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(views) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]shopResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toShopResponse(v))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

type sellerRequest struct {
	Zones      []string             `json:"zones"`
	Categories []string             `json:"categories"`
	Links      []model.PlatformLink `json:"links"`
	AvatarURL  string               `json:"avatar_url"`
	Bio        string               `json:"bio"`
}

type sellerResponse struct {
	ID         int64                `json:"id"`
	Username   string               `json:"username"`
	Zones      []string             `json:"zones"`
	Categories []string             `json:"categories"`
	Links      []model.PlatformLink `json:"links,omitempty"`
	AvatarURL  string               `json:"avatar_url,omitempty"`
	Bio        string               `json:"bio,omitempty"`
	CreatedAt  string               `json:"created_at"`
}

func toSellerResponse(s model.Seller) sellerResponse {
	categories := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		categories = append(categories, string(c))
	}
	return sellerResponse{
		ID:         s.ID,
		Username:   s.Username,
		Zones:      s.Zones,
		Categories: categories,
		Links:      s.Links,
		AvatarURL:  s.AvatarURL,
		Bio:        s.Bio,
		CreatedAt:  s.CreatedAt.Format(time.RFC3339),
	}
}

// CreateSellerProfile создаёт профиль продавца электронной торговли
// для текущего пользователя.
func (h *Handler) CreateSellerProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req sellerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	categories := make([]model.Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, model.Category(c))
	}

	seller := &model.Seller{
		Zones:      req.Zones,
		Categories: categories,
		Links:      req.Links,
		AvatarURL:  req.AvatarURL,
		Bio:        req.Bio,
	}

	id, err := h.service.CreateSellerProfile(r.Context(), identity.UserID, identity.Role, seller)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, repository.ErrSellerExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("create seller profile error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]int64{"id": id}); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

// ListSellers возвращает каталог продавцов по фильтру зоны и категории.
func (h *Handler) ListSellers(w http.ResponseWriter, r *http.Request) {
	filter := repository.SellerFilter{
		Zone:     r.URL.Query().Get("zone"),
		Category: model.Category(r.URL.Query().Get("category")),
	}

	sellers, err := h.service.ListSellers(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sellers error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]sellerResponse, 0, len(sellers))
	for _, s := range sellers {
		resp = append(resp, toSellerResponse(s))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
}

func shopIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "shopID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
