// Package service реализует бизнес-логику сервиса ShopGreen.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/shopgreen/shopgreen-system/internal/model"
	"github.com/shopgreen/shopgreen-system/internal/moderation"
	"github.com/shopgreen/shopgreen-system/internal/registry"
	"github.com/shopgreen/shopgreen-system/internal/repository"
	"github.com/shopgreen/shopgreen-system/internal/verification"
)

// ErrForbidden возвращается, когда у пользователя нет прав на операцию.
var ErrForbidden = errors.New("operation not permitted")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	CreateShop(ctx context.Context, shop *model.Shop) (int64, error)
	GetShopByID(ctx context.Context, id int64) (*model.Shop, error)
	ListShops(ctx context.Context, filter repository.ShopFilter) ([]model.Shop, error)
	UpdateShop(ctx context.Context, shop *model.Shop) error
	DeleteShop(ctx context.Context, id int64) error
	CastVote(ctx context.Context, shopID, userID int64, positive bool) (int, bool, error)
	GetVotesByShop(ctx context.Context, shopID int64) ([]model.Vote, error)
	SubmitClaim(ctx context.Context, shopID, userID int64) error
	ApplyClaimMutation(ctx context.Context, m moderation.Mutation) error
	AddFavorite(ctx context.Context, userID, shopID int64) error
	RemoveFavorite(ctx context.Context, userID, shopID int64) error
	GetFavoritesByUser(ctx context.Context, userID int64) ([]model.Shop, error)
	CreateSeller(ctx context.Context, seller *model.Seller) (int64, error)
	ListSellers(ctx context.Context, filter repository.SellerFilter) ([]model.Seller, error)
	GetShopsForLicenseCheck(ctx context.Context, limit int) ([]repository.LicenseCheck, error)
	UpdateLicenseStatus(ctx context.Context, shopID int64, status model.LicenseStatus) error
}

// Service содержит бизнес-логику сервиса ShopGreen.
type Service struct {
	repo           Repository
	registryClient *registry.Client
	location       *time.Location
	now            func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием, клиентом реестра
// лицензий и локальной временной зоной каталога.
func NewService(repo Repository, registryClient *registry.Client, location *time.Location) *Service {
	if location == nil {
		location = time.Local
	}
	s := &Service{
		repo:           repo,
		registryClient: registryClient,
		location:       location,
	}
	s.now = func() time.Time { return time.Now().In(s.location) }
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя. Роль оператора через
// самостоятельную регистрацию не выдаётся.
func (s *Service) RegisterUser(ctx context.Context, login, password string, role model.Role) (int64, error) {
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleSeller:
	default:
		return 0, errors.New("invalid role")
	}

	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed, role)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает учётную запись.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (*model.User, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return nil, errors.New("invalid credentials")
	}

	return u, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// ShopView — магазин вместе со спроецированным отображаемым статусом.
type ShopView struct {
	model.Shop
	Status model.ShopStatus
}

// project вычисляет статус магазина на момент чтения. Уровень доверия
// первичен: для неверифицированного магазина часы работы не оцениваются.
func (s *Service) project(shop model.Shop) ShopView {
	return ShopView{
		Shop:   shop,
		Status: verification.Project(shop.Tier(), shop.Hours, s.now()),
	}
}

// SubmitShop сохраняет новую запись магазина от пользователя.
// Запись создаётся неверифицированной и попадает в очередь модерации.
func (s *Service) SubmitShop(ctx context.Context, shop *model.Shop) (int64, error) {
	if shop.Category == "" {
		shop.Category = model.CategoryOther
	}
	return s.repo.CreateShop(ctx, shop)
}

// GetShop возвращает магазин с вычисленным статусом.
func (s *Service) GetShop(ctx context.Context, id int64) (*ShopView, error) {
	shop, err := s.repo.GetShopByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.project(*shop)
	return &view, nil
}

// ListShops возвращает магазины по фильтру, каждый с вычисленным статусом.
func (s *Service) ListShops(ctx context.Context, filter repository.ShopFilter) ([]ShopView, error) {
	shops, err := s.repo.ListShops(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]ShopView, 0, len(shops))
	for _, shop := range shops {
		views = append(views, s.project(shop))
	}
	return views, nil
}

// UpdateShop обновляет магазин. Допускается оператору либо владельцу магазина.
func (s *Service) UpdateShop(ctx context.Context, actorID int64, actorRole model.Role, shop *model.Shop) error {
	if actorRole != model.RoleOperator {
		current, err := s.repo.GetShopByID(ctx, shop.ID)
		if err != nil {
			return err
		}
		if current.OwnerID == nil || *current.OwnerID != actorID {
			return ErrForbidden
		}
	}

	return s.repo.UpdateShop(ctx, shop)
}

// DeleteShop удаляет магазин целиком. Так оператор отклоняет новую
// непроверенную запись из очереди модерации.
func (s *Service) DeleteShop(ctx context.Context, id int64) error {
	return s.repo.DeleteShop(ctx, id)
}

// CastVote регистрирует голос пользователя за магазин и возвращает новый счёт
// и уровень доверия. Повторный голос отклоняется с verification.ErrDuplicateVote.
func (s *Service) CastVote(ctx context.Context, shopID, userID int64, positive bool) (verification.VoteResult, error) {
	score, verified, err := s.repo.CastVote(ctx, shopID, userID, positive)
	if err != nil {
		return verification.VoteResult{}, err
	}

	tier := verification.Tier(score)
	if verified {
		tier = model.TierVerified
	}

	return verification.VoteResult{Score: score, Tier: tier}, nil
}

// VoteSummary содержит агрегированные итоги голосования по магазину.
type VoteSummary struct {
	Score    int
	Tier     model.VerificationTier
	Positive int
	Negative int
}

// GetVoteSummary восстанавливает журнал голосов магазина и возвращает итоги.
// Отсутствие магазина — ошибка, а не пустой журнал.
func (s *Service) GetVoteSummary(ctx context.Context, shopID int64) (*VoteSummary, error) {
	if _, err := s.repo.GetShopByID(ctx, shopID); err != nil {
		return nil, err
	}

	votes, err := s.repo.GetVotesByShop(ctx, shopID)
	if err != nil {
		return nil, err
	}

	ledger := verification.NewLedger(votes)

	summary := &VoteSummary{
		Score: ledger.Score(),
		Tier:  verification.Tier(ledger.Score()),
	}
	for _, v := range votes {
		if v.Positive {
			summary.Positive++
		} else {
			summary.Negative++
		}
	}

	return summary, nil
}

// SubmitClaim подаёт заявку пользователя на владение магазином.
func (s *Service) SubmitClaim(ctx context.Context, shopID, userID int64) error {
	return s.repo.SubmitClaim(ctx, shopID, userID)
}

// ResolveClaim применяет решение оператора по ожидающей заявке на владение.
func (s *Service) ResolveClaim(ctx context.Context, shopID int64, decision moderation.Decision) error {
	shop, err := s.repo.GetShopByID(ctx, shopID)
	if err != nil {
		return err
	}

	state := moderation.ClaimState{ClaimantID: shop.ClaimantID, CreatedAt: shop.ClaimedAt}
	mutation, err := moderation.Resolve(shopID, state, decision)
	if err != nil {
		return err
	}

	return s.repo.ApplyClaimMutation(ctx, mutation)
}

// ModerationQueue строит рабочий список оператора из текущей коллекции магазинов.
// Очередь нигде не хранится и пересчитывается при каждом запросе.
func (s *Service) ModerationQueue(ctx context.Context) ([]model.ModerationQueueItem, error) {
	shops, err := s.repo.ListShops(ctx, repository.ShopFilter{})
	if err != nil {
		return nil, err
	}
	return moderation.BuildQueue(shops), nil
}

// AddFavorite добавляет магазин в избранное пользователя. Операция идемпотентна.
func (s *Service) AddFavorite(ctx context.Context, userID, shopID int64) error {
	return s.repo.AddFavorite(ctx, userID, shopID)
}

// RemoveFavorite удаляет магазин из избранного пользователя. Операция идемпотентна.
func (s *Service) RemoveFavorite(ctx context.Context, userID, shopID int64) error {
	return s.repo.RemoveFavorite(ctx, userID, shopID)
}

// GetFavorites возвращает избранные магазины пользователя с вычисленными статусами.
func (s *Service) GetFavorites(ctx context.Context, userID int64) ([]ShopView, error) {
	shops, err := s.repo.GetFavoritesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]ShopView, 0, len(shops))
	for _, shop := range shops {
		views = append(views, s.project(shop))
	}
	return views, nil
}

// CreateSellerProfile создаёт профиль продавца электронной торговли
// для текущего пользователя. Профиль доступен только роли seller.
func (s *Service) CreateSellerProfile(ctx context.Context, actorID int64, actorRole model.Role, seller *model.Seller) (int64, error) {
	if actorRole != model.RoleSeller {
		return 0, ErrForbidden
	}

	seller.UserID = actorID
	return s.repo.CreateSeller(ctx, seller)
}

// ListSellers возвращает каталог продавцов электронной торговли по фильтру
// зоны доставки и категории товаров.
func (s *Service) ListSellers(ctx context.Context, filter repository.SellerFilter) ([]model.Seller, error) {
	return s.repo.ListSellers(ctx, filter)
}

// StartLicenseChecks запускает фоновый процесс сверки лицензий с муниципальным реестром.
func (s *Service) StartLicenseChecks(ctx context.Context) {
	if s.registryClient == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processLicenseBatch(ctx)
			}
		}
	}()
}

func (s *Service) processLicenseBatch(ctx context.Context) {
	checks, err := s.repo.GetShopsForLicenseCheck(ctx, 100)
	if err != nil {
		return
	}

	for _, check := range checks {
		record, statusCode, retryAfter, err := s.registryClient.GetLicense(ctx, check.LicenseID)
		if err != nil {
			continue
		}

		if statusCode == 429 {
			if retryAfter > 0 {
				timer := time.NewTimer(retryAfter)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			continue
		}

		// 204: лицензия ещё не внесена в банк данных, остаётся PENDING.
		if record == nil {
			continue
		}

		var status model.LicenseStatus
		switch record.Status {
		case "VALID", "ACTIVE":
			status = model.LicenseValid
		case "INVALID", "REVOKED", "EXPIRED":
			status = model.LicenseInvalid
		default:
			continue
		}

		_ = s.repo.UpdateLicenseStatus(ctx, check.ShopID, status)
	}
}
