// Package model содержит доменные сущности сервиса ShopGreen.
package model

import (
	"time"

	"github.com/shopgreen/shopgreen-system/internal/schedule"
)

// Role описывает роль учётной записи.
type Role string

const (
	RoleUser     Role = "user"
	RoleSeller   Role = "seller"
	RoleOperator Role = "operator"
)

// User представляет зарегистрированного пользователя каталога.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// Category описывает категорию магазина.
type Category string

const (
	CategoryClothing Category = "clothing"
	CategoryFood     Category = "food"
	CategoryHomeCare Category = "home_care"
	CategoryOther    Category = "other"
)

// VerificationTier описывает уровень доверия к магазину по итогам голосования сообщества.
type VerificationTier string

const (
	TierUnverified VerificationTier = "UNVERIFIED"
	TierVerified   VerificationTier = "VERIFIED"
)

// ShopStatus описывает отображаемый статус магазина, производный от уровня
// доверия, расписания и текущего времени. Статус нигде не хранится.
type ShopStatus string

const (
	StatusUnverified  ShopStatus = "UNVERIFIED"
	StatusOpen        ShopStatus = "OPEN"
	StatusOpeningSoon ShopStatus = "OPENING_SOON"
	StatusClosed      ShopStatus = "CLOSED"
)

// LicenseStatus описывает результат проверки торговой лицензии в муниципальном реестре.
type LicenseStatus string

const (
	LicensePending LicenseStatus = "PENDING"
	LicenseValid   LicenseStatus = "VALID"
	LicenseInvalid LicenseStatus = "INVALID"
)

// Shop описывает магазин каталога вместе с состоянием верификации и заявкой на владение.
type Shop struct {
	ID            int64
	Name          string
	Category      Category
	Description   string
	Address       string
	Lat           float64
	Lng           float64
	ImageURL      string
	Website       string
	LicenseID     string
	Hours         schedule.Week
	Score         int
	Verified      bool
	LicenseStatus LicenseStatus
	OwnerID       *int64
	ClaimantID    *int64
	ClaimedAt     *time.Time
	SubmittedBy   int64
	CreatedAt     time.Time
}

// Tier возвращает уровень доверия магазина. Продвижение одностороннее:
// однажды верифицированный магазин не понижается при падении счёта.
func (s *Shop) Tier() VerificationTier {
	if s.Verified {
		return TierVerified
	}
	return TierUnverified
}

// Vote описывает голос пользователя за устойчивость магазина.
// Пара (ShopID, UserID) уникальна: пользователь голосует за магазин один раз.
type Vote struct {
	ShopID    int64
	UserID    int64
	Positive  bool
	CreatedAt time.Time
}

// OwnershipClaim описывает ожидающую решения заявку пользователя на владение магазином.
type OwnershipClaim struct {
	ShopID     int64
	ClaimantID int64
	CreatedAt  time.Time
}

// PlatformLink — ссылка продавца на внешнюю торговую площадку.
type PlatformLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Seller — профиль продавца в каталоге электронной торговли: зоны доставки
// по городу, категории товаров и ссылки на площадки. Один профиль на пользователя.
type Seller struct {
	ID         int64
	UserID     int64
	Username   string
	Zones      []string
	Categories []Category
	Links      []PlatformLink
	AvatarURL  string
	Bio        string
	CreatedAt  time.Time
}

// QueueItemKind различает причину попадания магазина в очередь модерации.
type QueueItemKind string

const (
	QueueNewSubmission  QueueItemKind = "NEW_SUBMISSION"
	QueueOwnershipClaim QueueItemKind = "OWNERSHIP_CLAIM"
)

// ModerationQueueItem — элемент рабочего списка оператора. Очередь не хранится,
// а вычисляется из коллекции магазинов при каждом запросе.
type ModerationQueueItem struct {
	ShopID        int64
	ShopName      string
	Kind          QueueItemKind
	ImageURL      string
	LicenseID     string
	LicenseStatus LicenseStatus
	SubmittedBy   int64
	ClaimantID    *int64
}
