package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/shopgreen/shopgreen-system/internal/middleware"
	"github.com/shopgreen/shopgreen-system/internal/model"
	"github.com/shopgreen/shopgreen-system/internal/moderation"
	"github.com/shopgreen/shopgreen-system/internal/repository"
	"github.com/shopgreen/shopgreen-system/internal/service"
	"github.com/shopgreen/shopgreen-system/internal/verification"
)

type stubService struct {
	registerUserID int64
	registerErr    error

	authUser *model.User
	authErr  error

	submitShopID  int64
	submitShopErr error

	shopView *service.ShopView
	shopErr  error

	shopViews []service.ShopView
	listErr   error

	updateErr error
	deleteErr error

	voteResult verification.VoteResult
	voteErr    error

	voteSummary    *service.VoteSummary
	voteSummaryErr error

	claimErr   error
	resolveErr error

	queue    []model.ModerationQueueItem
	queueErr error

	favorites []service.ShopView

	createSellerID  int64
	createSellerErr error

	sellers      []model.Seller
	sellerFilter repository.SellerFilter
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error) {
	return s.registerUserID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	return s.authUser, s.authErr
}

func (s *stubService) SubmitShop(ctx context.Context, shop *model.Shop) (int64, error) {
	return s.submitShopID, s.submitShopErr
}

func (s *stubService) GetShop(ctx context.Context, id int64) (*service.ShopView, error) {
	return s.shopView, s.shopErr
}

func (s *stubService) ListShops(ctx context.Context, filter repository.ShopFilter) ([]service.ShopView, error) {
	return s.shopViews, s.listErr
}

func (s *stubService) UpdateShop(ctx context.Context, actorID int64, actorRole model.Role, shop *model.Shop) error {
	return s.updateErr
}

func (s *stubService) DeleteShop(ctx context.Context, id int64) error {
	return s.deleteErr
}

func (s *stubService) CastVote(ctx context.Context, shopID, userID int64, positive bool) (verification.VoteResult, error) {
	return s.voteResult, s.voteErr
}

func (s *stubService) GetVoteSummary(ctx context.Context, shopID int64) (*service.VoteSummary, error) {
	return s.voteSummary, s.voteSummaryErr
}

func (s *stubService) SubmitClaim(ctx context.Context, shopID, userID int64) error {
	return s.claimErr
}

func (s *stubService) ResolveClaim(ctx context.Context, shopID int64, decision moderation.Decision) error {
	return s.resolveErr
}

func (s *stubService) ModerationQueue(ctx context.Context) ([]model.ModerationQueueItem, error) {
	return s.queue, s.queueErr
}

func (s *stubService) AddFavorite(ctx context.Context, userID, shopID int64) error    { return nil }
func (s *stubService) RemoveFavorite(ctx context.Context, userID, shopID int64) error { return nil }

func (s *stubService) GetFavorites(ctx context.Context, userID int64) ([]service.ShopView, error) {
	return s.favorites, nil
}

func (s *stubService) CreateSellerProfile(ctx context.Context, actorID int64, actorRole model.Role, seller *model.Seller) (int64, error) {
	if actorRole != model.RoleSeller {
		return 0, service.ErrForbidden
	}
	return s.createSellerID, s.createSellerErr
}

func (s *stubService) ListSellers(ctx context.Context, filter repository.SellerFilter) ([]model.Seller, error) {
	s.sellerFilter = filter
	return s.sellers, nil
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")

	return NewHandler(svc, logger, auth)
}

// doRequest выполняет запрос через полный роутер, при необходимости
// с cookie авторизации для пользователя с указанной ролью.
func doRequest(t *testing.T, h *Handler, method, target string, body []byte, role model.Role) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)

	if role != "" {
		rec := httptest.NewRecorder()
		h.authMiddleware.SetAuthCookie(rec, 1, role)
		req.AddCookie(rec.Result().Cookies()[0])
	}

	respRec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(respRec, req)
	return respRec.Result()
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerUserID: 42,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Login:    "user",
		Password: "pass",
	})

	res := doRequest(t, h, http.MethodPost, "/api/user/register", body, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("auth cookie not set on register")
	}
}

func TestRegister_DuplicateLogin(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass"})

	res := doRequest(t, h, http.MethodPost, "/api/user/register", body, "")
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestLogin_UnauthorizedOnBadCredentials(t *testing.T) {
	svc := &stubService{
		authErr: repository.ErrUserNotFound,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{Login: "user", Password: "pass"})

	res := doRequest(t, h, http.MethodPost, "/api/user/login", body, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestSubmitShop_RequiresAuth(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(shopRequest{Name: "shop", LicenseID: "TN-2023-9988"})

	res := doRequest(t, h, http.MethodPost, "/api/shops", body, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestSubmitShop_InvalidLicense(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(shopRequest{Name: "shop", LicenseID: "not-a-license"})

	res := doRequest(t, h, http.MethodPost, "/api/shops", body, model.RoleUser)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}
}

func TestSubmitShop_Created(t *testing.T) {
	svc := &stubService{submitShopID: 7}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(shopRequest{Name: "Bottega Verde", LicenseID: "TN-2023-9988"})

	res := doRequest(t, h, http.MethodPost, "/api/shops", body, model.RoleSeller)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp map[string]int64
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != 7 {
		t.Fatalf("id = %d, want 7", resp["id"])
	}
}

func TestGetShop_NotFound(t *testing.T) {
	svc := &stubService{shopErr: repository.ErrShopNotFound}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/shops/99", nil, "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestGetShop_ProjectsStatus(t *testing.T) {
	svc := &stubService{
		shopView: &service.ShopView{
			Shop:   model.Shop{ID: 1, Name: "shop", LicenseID: "TN-2023-9988"},
			Status: model.StatusUnverified,
		},
	}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/shops/1", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "UNVERIFIED" {
		t.Fatalf("status field = %v, want UNVERIFIED", resp["status"])
	}
}

func TestCastVote_Conflict(t *testing.T) {
	svc := &stubService{voteErr: verification.ErrDuplicateVote}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(voteRequest{Positive: true})

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/vote", body, model.RoleUser)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestCastVote_ReturnsScoreAndTier(t *testing.T) {
	svc := &stubService{
		voteResult: verification.VoteResult{Score: 8, Tier: model.TierVerified},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(voteRequest{Positive: true})

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/vote", body, model.RoleUser)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp voteResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Score != 8 || resp.Tier != "VERIFIED" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetVotes_ShopNotFound(t *testing.T) {
	svc := &stubService{voteSummaryErr: repository.ErrShopNotFound}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/shops/99/votes", nil, "")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestSubmitClaim_Conflict(t *testing.T) {
	svc := &stubService{claimErr: moderation.ErrClaimConflict}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/claim", nil, model.RoleSeller)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestSubmitClaim_Accepted(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/claim", nil, model.RoleSeller)
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusAccepted)
	}
}

func TestResolveClaim_OperatorOnly(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(resolveClaimRequest{Decision: "accept"})

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/claim/resolve", body, model.RoleSeller)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doRequest(t, h, http.MethodPost, "/api/shops/1/claim/resolve", body, model.RoleOperator)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}

func TestResolveClaim_NoPendingClaim(t *testing.T) {
	svc := &stubService{resolveErr: moderation.ErrNoPendingClaim}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(resolveClaimRequest{Decision: "reject"})

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/claim/resolve", body, model.RoleOperator)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestResolveClaim_BadDecision(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(resolveClaimRequest{Decision: "maybe"})

	res := doRequest(t, h, http.MethodPost, "/api/shops/1/claim/resolve", body, model.RoleOperator)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestModerationQueue_OperatorOnly(t *testing.T) {
	svc := &stubService{
		queue: []model.ModerationQueueItem{
			{ShopID: 1, ShopName: "new shop", Kind: model.QueueNewSubmission, LicenseID: "TN-2023-9988"},
		},
	}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/moderation/queue", nil, model.RoleUser)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doRequest(t, h, http.MethodGet, "/api/moderation/queue", nil, model.RoleOperator)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var items []queueItemResponse
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(items) != 1 || items[0].Kind != "NEW_SUBMISSION" {
		t.Fatalf("unexpected queue: %+v", items)
	}
}

func TestAddFavorite(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(favoriteRequest{ShopID: 3})

	res := doRequest(t, h, http.MethodPost, "/api/user/favorites", body, model.RoleUser)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	res = doRequest(t, h, http.MethodPost, "/api/user/favorites", []byte(`{"shop_id":0}`), model.RoleUser)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestGetFavorites_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodGet, "/api/user/favorites", nil, model.RoleUser)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}

func TestCreateSellerProfile(t *testing.T) {
	svc := &stubService{createSellerID: 4}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(sellerRequest{
		Zones:      []string{"centro-storico", "gardolo"},
		Categories: []string{"food"},
		Links:      []model.PlatformLink{{Name: "shopify", URL: "https://bio-trento.example"}},
	})

	res := doRequest(t, h, http.MethodPost, "/api/ecommerce/sellers", body, model.RoleSeller)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp map[string]int64
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != 4 {
		t.Fatalf("id = %d, want 4", resp["id"])
	}
}

func TestCreateSellerProfile_SellerOnly(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(sellerRequest{Zones: []string{"gardolo"}})

	res := doRequest(t, h, http.MethodPost, "/api/ecommerce/sellers", body, "")
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	res = doRequest(t, h, http.MethodPost, "/api/ecommerce/sellers", body, model.RoleUser)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
}

func TestCreateSellerProfile_Duplicate(t *testing.T) {
	svc := &stubService{createSellerErr: repository.ErrSellerExists}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(sellerRequest{Zones: []string{"gardolo"}})

	res := doRequest(t, h, http.MethodPost, "/api/ecommerce/sellers", body, model.RoleSeller)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestListSellers(t *testing.T) {
	svc := &stubService{
		sellers: []model.Seller{
			{
				ID:         1,
				Username:   "bio-trento",
				Zones:      []string{"gardolo"},
				Categories: []model.Category{model.CategoryFood},
			},
		},
	}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodGet, "/api/ecommerce/sellers?zone=gardolo&category=food", nil, "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	if svc.sellerFilter.Zone != "gardolo" || svc.sellerFilter.Category != model.CategoryFood {
		t.Fatalf("unexpected filter: %+v", svc.sellerFilter)
	}

	var resp []sellerResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Username != "bio-trento" {
		t.Fatalf("unexpected sellers: %+v", resp)
	}
}

func TestDeleteShop_OperatorOnly(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodDelete, "/api/shops/1", nil, model.RoleSeller)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}

	res = doRequest(t, h, http.MethodDelete, "/api/shops/1", nil, model.RoleOperator)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNoContent)
	}
}
